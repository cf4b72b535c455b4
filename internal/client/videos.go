package client

import (
	"context"
	"fmt"
	"net/url"
)

func validSummaryType(t string) error {
	switch t {
	case SummaryBrief, SummaryBullet, SummaryDetailed:
		return nil
	}
	return fmt.Errorf("invalid summary type %q (want %s, %s or %s)", t, SummaryBrief, SummaryBullet, SummaryDetailed)
}

func (c *Client) ListVideos(ctx context.Context) ([]Video, error) {
	resp, err := c.get(ctx, "/api/videos/")
	if err != nil {
		return nil, err
	}
	var videos []Video
	if err := decodeJSON(resp, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// SummarizeYouTube fetches the transcript of a YouTube video and summarizes it.
func (c *Client) SummarizeYouTube(ctx context.Context, videoURL, summaryType string) (*Video, error) {
	if err := validSummaryType(summaryType); err != nil {
		return nil, err
	}
	resp, err := c.postForm(ctx, "/api/videos/youtube", url.Values{
		"url":          {videoURL},
		"summary_type": {summaryType},
	})
	if err != nil {
		return nil, err
	}
	var v Video
	if err := decodeJSON(resp, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) UploadVideo(ctx context.Context, f File) (*UploadedVideo, error) {
	resp, err := c.postMultipart(ctx, "/api/videos/upload", nil, &f)
	if err != nil {
		return nil, err
	}
	var uv UploadedVideo
	if err := decodeJSON(resp, &uv); err != nil {
		return nil, err
	}
	return &uv, nil
}

// SummarizeVideo summarizes a previously uploaded video.
func (c *Client) SummarizeVideo(ctx context.Context, id, summaryType string) (*VideoSummary, error) {
	if err := validSummaryType(summaryType); err != nil {
		return nil, err
	}
	resp, err := c.postForm(ctx, "/api/videos/"+url.PathEscape(id)+"/summarize", url.Values{
		"summary_type": {summaryType},
	})
	if err != nil {
		return nil, err
	}
	var vs VideoSummary
	if err := decodeJSON(resp, &vs); err != nil {
		return nil, err
	}
	return &vs, nil
}

// VideoOCR extracts on-screen text from an uploaded video's frames.
func (c *Client) VideoOCR(ctx context.Context, id string) (*VideoText, error) {
	resp, err := c.postForm(ctx, "/api/vdo-ocr/"+url.PathEscape(id), url.Values{})
	if err != nil {
		return nil, err
	}
	var vt VideoText
	if err := decodeJSON(resp, &vt); err != nil {
		return nil, err
	}
	return &vt, nil
}

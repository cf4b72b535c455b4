package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/session"
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Summarize lectures from YouTube or uploaded files",
}

func videoKey(v client.Video) string { return v.ID }

func videoLine(v client.Video) string {
	kind := v.Type
	if kind == "" {
		kind = "upload"
	}
	return fmt.Sprintf("%s  %s  %-8s %-10s %s", shortID(v.ID), timestamp(v.CreatedAt), kind, v.Status, truncate(v.Title, 50))
}

var videoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your videos",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		videos, err := a.api.ListVideos(ctx)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("feed")
		if format != "" {
			return writeVideoFeed(cmd.OutOrStdout(), format, videoFeed(videos, user, a.api.BaseURL(), time.Now()))
		}
		printRecent(cmd.OutOrStdout(), "Videos", videos, 0, videoLine)
		return nil
	}),
}

// videoFeed turns summarized videos into a feed a reader app can follow.
func videoFeed(videos []client.Video, user *session.User, baseURL string, now time.Time) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("SmartLearn video summaries for %s", user.Username),
		Link:        &feeds.Link{Href: baseURL},
		Description: "Lecture summaries generated by SmartLearn",
		Author:      &feeds.Author{Name: user.Username, Email: user.Email},
		Created:     now,
	}
	for _, v := range videos {
		if v.Summary == "" {
			continue
		}
		link := v.URL
		if link == "" {
			link = baseURL + "/api/videos/" + v.ID
		}
		created := v.CreatedAt.Time
		if created.IsZero() {
			created = now
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          v.ID,
			Title:       v.Title,
			Link:        &feeds.Link{Href: link},
			Description: truncate(v.Summary, 200),
			Content:     v.Summary,
			Created:     created,
		})
	}
	return feed
}

func writeVideoFeed(w io.Writer, format string, feed *feeds.Feed) error {
	var (
		out string
		err error
	)
	switch strings.ToLower(format) {
	case "atom":
		out, err = feed.ToAtom()
	case "rss":
		out, err = feed.ToRss()
	case "json":
		out, err = feed.ToJSON()
	default:
		return fmt.Errorf("unknown feed format %q (want atom, rss or json)", format)
	}
	if err != nil {
		return fmt.Errorf("building %s feed: %w", format, err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

var videoYouTubeCmd = &cobra.Command{
	Use:   "youtube <url>",
	Short: "Summarize a YouTube video from its transcript",
	Args:  cobra.ExactArgs(1),
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		summaryType, _ := cmd.Flags().GetString("type")
		hv := newHistoryView(cmd, a.api.ListVideos, videoKey, "Videos", videoLine)
		hv.mount(ctx)

		printStep("Fetching transcript and summarizing...")
		v, err := a.api.SummarizeYouTube(ctx, args[0], summaryType)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		heading(w, v.Title)
		printMarkdown(w, v.Summary)
		hv.prepend(w, *v)
		return nil
	}),
}

var videoUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a lecture video",
	Args:  cobra.ExactArgs(1),
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		f, err := openUpload(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		hv := newHistoryView(cmd, a.api.ListVideos, videoKey, "Videos", videoLine)
		hv.mount(ctx)

		printStep("Uploading %s...", filepath.Base(args[0]))
		uv, err := a.api.UploadVideo(ctx, client.File{Name: filepath.Base(args[0]), Content: f})
		if err != nil {
			return err
		}
		printSuccess("Uploaded %s (id %s)", uv.Filename, uv.ID)

		v := client.Video{ID: uv.ID, Title: uv.Filename, Status: uv.Status}
		if summarize, _ := cmd.Flags().GetBool("summarize"); summarize {
			summaryType, _ := cmd.Flags().GetString("type")
			s, err := a.api.SummarizeVideo(ctx, uv.ID, summaryType)
			if err != nil {
				return err
			}
			v.Summary, v.Status, v.SummaryType = s.Summary, s.Status, summaryType
			printMarkdown(cmd.OutOrStdout(), s.Summary)
		} else {
			printStep("Summarize it with: smartlearn video summarize %s", uv.ID)
		}
		hv.prepend(cmd.OutOrStdout(), v)
		return nil
	}),
}

var videoSummarizeCmd = &cobra.Command{
	Use:   "summarize <id>",
	Short: "Summarize an uploaded video",
	Args:  cobra.ExactArgs(1),
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		summaryType, _ := cmd.Flags().GetString("type")
		s, err := a.api.SummarizeVideo(ctx, args[0], summaryType)
		if err != nil {
			return err
		}
		printMarkdown(cmd.OutOrStdout(), s.Summary)
		return nil
	}),
}

var videoOCRCmd = &cobra.Command{
	Use:   "ocr <id>",
	Short: "Extract on-screen text from an uploaded video",
	Args:  cobra.ExactArgs(1),
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		t, err := a.api.VideoOCR(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Text)
		return nil
	}),
}

func init() {
	videoCmd.AddCommand(videoListCmd, videoYouTubeCmd, videoUploadCmd, videoSummarizeCmd, videoOCRCmd)

	videoListCmd.Flags().String("feed", "", "print the summaries as a feed: atom, rss or json")
	for _, c := range []*cobra.Command{videoYouTubeCmd, videoUploadCmd, videoSummarizeCmd} {
		c.Flags().String("type", client.SummaryBrief, "summary type: brief, bullet or detailed")
	}
	videoUploadCmd.Flags().Bool("summarize", false, "summarize right after uploading")
	addHistoryFlag(videoYouTubeCmd, videoUploadCmd)
}

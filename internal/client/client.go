// Package client is the HTTP client for the SmartLearn API.
//
// Every request carries the session's bearer token when one is present. The
// client never touches session state: a 401 surfaces as a *StatusError and
// the caller decides what to do with it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds every request. AI-backed endpoints are slow.
const DefaultTimeout = 60 * time.Second

// TokenSource supplies the bearer token for outgoing requests. An empty token
// sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// New returns a client for the API rooted at baseURL. tokens may be nil.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API origin requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// File is an upload read from Content and sent under Name.
type File struct {
	Name    string
	Content io.Reader
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable at %s (%w)", c.baseURL, err)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, c.tokens.Token(), nil, "")
}

func (c *Client) delete(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, path, c.tokens.Token(), nil, "")
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, c.tokens.Token(), bytes.NewReader(data), "application/json")
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, c.tokens.Token(), strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// postMultipart sends fields and an optional file part named "file".
func (c *Client) postMultipart(ctx context.Context, path string, fields map[string]string, file *File) (*http.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("writing form field %s: %w", k, err)
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
		h.Set("Content-Type", partContentType(file.Name))
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("creating file part: %w", err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return c.do(ctx, http.MethodPost, path, c.tokens.Token(), &buf, mw.FormDataContentType())
}

// videoTypes covers containers missing from Go's builtin MIME table.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// partContentType guesses the MIME type of an upload from its extension, the
// way a browser labels a file input. The server rejects uploads whose type
// doesn't match the endpoint.
func partContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// decodeJSON decodes a successful response into v. Responses with status
// 400 and above become a *StatusError.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &StatusError{Code: resp.StatusCode, Detail: fmt.Sprintf("failed to read body: %v", err)}
		}
		return newStatusError(resp.StatusCode, body)
	}
	if v == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

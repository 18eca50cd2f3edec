package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fabler/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxBodyBytes       = 4 << 20
	userAgent          = "fabler/1.0"
	stageName          = "ingest"
)

// Client downloads a web page and reduces it to readable text.
type Client struct {
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a fetcher.
func NewClient(opts ...Option) *Client {
	client := &Client{httpClient: &http.Client{Timeout: defaultHTTPTimeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FetchText downloads the URL and strips HTML down to its text content.
// Non-HTML responses are returned as-is.
func (c *Client) FetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, stageName, "fetch", "invalid url", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "fetch", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		marker := services.MarkerForStatus(resp.StatusCode)
		return "", services.Wrap(marker, stageName, "fetch", fmt.Sprintf("http %d for %s", resp.StatusCode, pageURL), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "fetch", "read body", err)
	}

	content := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "html") || looksLikeHTML(content) {
		content = StripHTML(content)
	}
	return strings.TrimSpace(content), nil
}

func looksLikeHTML(content string) bool {
	head := strings.ToLower(content)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

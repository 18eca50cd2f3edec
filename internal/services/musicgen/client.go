package musicgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"fabler/internal/config"
	"fabler/internal/pipeline"
	"fabler/internal/services"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultPollAttempts = 10
	defaultPollInterval = 6 * time.Second
	stageName           = "assemble"
)

// Client wraps a submit-then-poll background music API. Generation is
// asynchronous upstream: a submission returns a task id, and the track
// is fetched once polling observes a ready state.
type Client struct {
	cfg          config.Music
	httpClient   *http.Client
	pollInterval time.Duration
	sleep        func(context.Context, time.Duration) error
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

// WithSleep overrides the inter-poll pause, used in tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient constructs a music generator from configuration.
func NewClient(cfg config.Music, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = defaultPollAttempts
	}
	interval := defaultPollInterval
	if cfg.PollIntervalSeconds > 0 {
		interval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	client := &Client{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: interval,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type submitRequest struct {
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

type taskResponse struct {
	Status   string `json:"status"`
	AudioURL string `json:"audio_url"`
	Error    string `json:"error"`
}

// Generate submits a generation task and polls with a bounded budget.
// It reports false without error when the track never became ready in
// time; callers treat that as an absent optional input.
func (c *Client) Generate(ctx context.Context, req pipeline.MusicRequest) (bool, error) {
	if c.cfg.BaseURL == "" {
		return false, services.Wrap(services.ErrConfiguration, stageName, "music", "music base url is not configured", nil)
	}

	taskID, err := c.submit(ctx, req)
	if err != nil {
		return false, err
	}

	for attempt := 1; attempt <= c.cfg.PollAttempts; attempt++ {
		task, err := c.poll(ctx, taskID)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(task.Status) {
		case "ready", "complete", "completed", "succeeded":
			if task.AudioURL == "" {
				return false, services.Wrap(services.ErrPermanent, stageName, "music", "ready task carried no audio url", nil)
			}
			if err := c.download(ctx, task.AudioURL, req.OutputPath); err != nil {
				return false, err
			}
			return true, nil
		case "failed", "error":
			return false, services.Wrap(services.ErrPermanent, stageName, "music", strings.TrimSpace(task.Error), nil)
		}
		if attempt == c.cfg.PollAttempts {
			break
		}
		if err := c.pause(ctx); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (c *Client) submit(ctx context.Context, req pipeline.MusicRequest) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "generate")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "build url", c.cfg.BaseURL, err)
	}
	payload := submitRequest{
		Prompt:          req.Theme,
		DurationSeconds: int(req.Duration.Round(time.Second).Seconds()),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode music request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build music request: %w", err)
	}
	c.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "music", "submit request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		marker := services.MarkerForStatus(resp.StatusCode)
		return "", services.Wrap(marker, stageName, "music",
			fmt.Sprintf("submit http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", services.Wrap(services.ErrPermanent, stageName, "music", "decode submit response", err)
	}
	if strings.TrimSpace(submitted.TaskID) == "" {
		return "", services.Wrap(services.ErrPermanent, stageName, "music", "submit response carried no task id", nil)
	}
	return submitted.TaskID, nil
}

func (c *Client) poll(ctx context.Context, taskID string) (taskResponse, error) {
	var task taskResponse
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "tasks", taskID)
	if err != nil {
		return task, services.Wrap(services.ErrConfiguration, stageName, "build url", c.cfg.BaseURL, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return task, fmt.Errorf("build poll request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return task, services.Wrap(services.ErrTransient, stageName, "music", "poll request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		marker := services.MarkerForStatus(resp.StatusCode)
		return task, services.Wrap(marker, stageName, "music", fmt.Sprintf("poll http %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return task, services.Wrap(services.ErrPermanent, stageName, "music", "decode poll response", err)
	}
	return task, nil
}

func (c *Client) download(ctx context.Context, audioURL, outputPath string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "music", "download track", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		marker := services.MarkerForStatus(resp.StatusCode)
		return services.Wrap(marker, stageName, "music", fmt.Sprintf("download http %d", resp.StatusCode), nil)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return services.Wrap(services.ErrResource, stageName, "music", "create track file", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "music", "stream track", err)
	}
	return out.Close()
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func (c *Client) pause(ctx context.Context) error {
	if c.sleep != nil {
		return c.sleep(ctx, c.pollInterval)
	}
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

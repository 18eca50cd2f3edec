package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
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
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultSize        = "1024x1024"
	defaultHTTPTimeout = 120 * time.Second
	stageName          = "storyboard"
)

// Client wraps an OpenAI-compatible image generation API.
type Client struct {
	cfg        config.Images
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

// NewClient constructs an image synthesizer from configuration.
func NewClient(cfg config.Images, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Size) == "" {
		cfg.Size = defaultSize
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type generationRequest struct {
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type generationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// RenderScene generates one illustration and writes it to the request's
// output path.
func (c *Client) RenderScene(ctx context.Context, req pipeline.ImageRequest) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "render", "image api key is not configured", nil)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "images", "generations")
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "build url", c.cfg.BaseURL, err)
	}

	payload := generationRequest{
		Prompt:         req.Prompt,
		N:              1,
		Size:           c.cfg.Size,
		ResponseFormat: "b64_json",
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode image request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build image request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "render", "image request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "render", "read image response", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		marker := services.MarkerForStatus(resp.StatusCode)
		return services.Wrap(marker, stageName, "render",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var generation generationResponse
	if err := json.Unmarshal(body, &generation); err != nil {
		return services.Wrap(services.ErrPermanent, stageName, "render", "decode image response", err)
	}
	if generation.Error != nil {
		return services.Wrap(services.ErrPermanent, stageName, "render", strings.TrimSpace(generation.Error.Message), nil)
	}
	if len(generation.Data) == 0 || generation.Data[0].B64JSON == "" {
		return services.Wrap(services.ErrTransient, stageName, "render", "image response carried no data", nil)
	}

	decoded, err := base64.StdEncoding.DecodeString(generation.Data[0].B64JSON)
	if err != nil {
		return services.Wrap(services.ErrPermanent, stageName, "render", "decode image payload", err)
	}
	if err := os.WriteFile(req.OutputPath, decoded, 0o644); err != nil {
		return services.Wrap(services.ErrResource, stageName, "render", "write image file", err)
	}
	return nil
}

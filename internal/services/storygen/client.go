package storygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"fabler/internal/config"
	"fabler/internal/pipeline"
	"fabler/internal/queue"
	"fabler/internal/services"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultHTTPTimeout = 60 * time.Second
	stageName          = "story"
)

// Client wraps an OpenAI-compatible chat completion API for script
// generation.
type Client struct {
	cfg        config.Story
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

// NewClient constructs a story generator from configuration.
func NewClient(cfg config.Story, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
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

// GenerateStory asks the model for an outline and narration script.
func (c *Client) GenerateStory(ctx context.Context, req pipeline.StoryRequest) (queue.StoryArtifact, error) {
	var empty queue.StoryArtifact
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, stageName, "generate", "story api key is not configured", nil)
	}
	content, err := c.complete(ctx, storySystemPrompt, storyUserPrompt(req))
	if err != nil {
		return empty, err
	}
	story := ParseStory(content)
	return story, nil
}

// GenerateEpisodes asks the model to serialize the source into the
// requested number of episodes.
func (c *Client) GenerateEpisodes(ctx context.Context, req pipeline.EpisodeRequest) ([]pipeline.EpisodeScript, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "plan episodes", "story api key is not configured", nil)
	}
	content, err := c.complete(ctx, episodeSystemPrompt, episodeUserPrompt(req))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Episodes []struct {
			Index  int    `json:"index"`
			Title  string `json:"title"`
			Script string `json:"script"`
		} `json:"episodes"`
	}
	if err := decodeModelJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrPermanent, stageName, "plan episodes", "model returned unparseable episode plan", err)
	}

	episodes := make([]pipeline.EpisodeScript, 0, len(parsed.Episodes))
	for i, ep := range parsed.Episodes {
		index := ep.Index
		if index <= 0 {
			index = i + 1
		}
		episodes = append(episodes, pipeline.EpisodeScript{
			Index:  index,
			Title:  strings.TrimSpace(ep.Title),
			Script: strings.TrimSpace(ep.Script),
		})
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].Index < episodes[j].Index })
	return episodes, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "chat", "completions")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "build url", c.cfg.BaseURL, err)
	}
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "complete", "chat request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "complete", "read chat response", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		marker := services.MarkerForStatus(resp.StatusCode)
		return "", services.Wrap(marker, stageName, "complete",
			fmt.Sprintf("http %d: %s", resp.StatusCode, summarize(string(body))), nil)
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", services.Wrap(services.ErrPermanent, stageName, "complete", "decode chat response", err)
	}
	if completion.Error != nil {
		return "", services.Wrap(services.ErrPermanent, stageName, "complete", strings.TrimSpace(completion.Error.Message), nil)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", services.Wrap(services.ErrTransient, stageName, "complete", "model returned empty content", nil)
	}
	return completion.Choices[0].Message.Content, nil
}

// decodeModelJSON tolerates the code fences some models wrap around
// JSON payloads.
func decodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "json")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}
	if err := json.Unmarshal([]byte(trimmed), target); err != nil {
		return fmt.Errorf("decode model payload: %w", err)
	}
	return nil
}

func summarize(body string) string {
	clean := strings.Join(strings.Fields(body), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}

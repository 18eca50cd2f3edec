package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable by the daemon.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return fmt.Errorf("paths.library_dir is required")
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return fmt.Errorf("paths.scratch_dir is required")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return fmt.Errorf("workflow.queue_poll_interval must be positive, got %d", c.Workflow.QueuePollInterval)
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return fmt.Errorf("workflow.error_retry_interval must be positive, got %d", c.Workflow.ErrorRetryInterval)
	}
	if c.Workflow.ImageFanOut <= 0 {
		return fmt.Errorf("workflow.image_fan_out must be positive, got %d", c.Workflow.ImageFanOut)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.DelaySeconds < 0 {
		return fmt.Errorf("retry.delay_seconds must not be negative, got %d", c.Retry.DelaySeconds)
	}
	return nil
}

func (c *Config) validateProviders() error {
	if strings.TrimSpace(c.Story.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/fabler/config.toml"
		}
		return fmt.Errorf("story.api_key is required; edit %s (create with 'fabler config init')", defaultPath)
	}
	if strings.TrimSpace(c.TTS.APIKey) == "" {
		return fmt.Errorf("tts.api_key is required")
	}
	if strings.TrimSpace(c.Images.APIKey) == "" {
		return fmt.Errorf("images.api_key is required")
	}
	if c.Music.Enabled {
		if strings.TrimSpace(c.Music.BaseURL) == "" {
			return fmt.Errorf("music.base_url is required when music.enabled is true")
		}
		if c.Music.PollAttempts <= 0 {
			return fmt.Errorf("music.poll_attempts must be positive, got %d", c.Music.PollAttempts)
		}
		if c.Music.PollIntervalSeconds <= 0 {
			return fmt.Errorf("music.poll_interval_seconds must be positive, got %d", c.Music.PollIntervalSeconds)
		}
	}
	if c.Transcribe.ChunkMinutes <= 0 || c.Transcribe.ChunkMinutes > 25 {
		return fmt.Errorf("transcribe.chunk_minutes must be between 1 and 25, got %d", c.Transcribe.ChunkMinutes)
	}
	return nil
}

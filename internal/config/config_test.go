package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	cfg := Default()
	base := t.TempDir()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Story.APIKey = "sk-test"
	cfg.TTS.APIKey = "el-test"
	cfg.Images.APIKey = "img-test"
	return cfg
}

func TestValidateAcceptsDefaultsWithKeys(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRequiresStoryKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.Story.APIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "story.api_key") {
		t.Fatalf("expected story.api_key error, got %v", err)
	}
}

func TestValidateRejectsBadChunkMinutes(t *testing.T) {
	cfg := validConfig(t)
	cfg.Transcribe.ChunkMinutes = 30
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for chunk_minutes above upstream limit")
	}
}

func TestValidateMusicRequiresURLWhenEnabled(t *testing.T) {
	cfg := validConfig(t)
	cfg.Music.Enabled = true
	cfg.Music.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enabled music without base_url")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workflow.QueuePollInterval != defaultQueuePollInterval {
		t.Fatalf("expected default poll interval, got %d", cfg.Workflow.QueuePollInterval)
	}
	if cfg.Media.FFmpegBinary != defaultFFmpegBinary {
		t.Fatalf("expected default ffmpeg binary, got %q", cfg.Media.FFmpegBinary)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[workflow]\nqueue_poll_interval = 11\n\n[story]\nmodel = \"demo\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workflow.QueuePollInterval != 11 {
		t.Fatalf("expected override poll interval, got %d", cfg.Workflow.QueuePollInterval)
	}
	if cfg.Story.Model != "demo" {
		t.Fatalf("expected override model, got %q", cfg.Story.Model)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}

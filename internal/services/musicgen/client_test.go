package musicgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"fabler/internal/config"
	"fabler/internal/pipeline"
	"fabler/internal/services"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestGenerateReadyAfterPolling(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"task_id":"task-1"}`)
	})
	mux.HandleFunc("/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			fmt.Fprint(w, `{"status":"pending"}`)
			return
		}
		fmt.Fprintf(w, `{"status":"ready","audio_url":%q}`, srv.URL+"/audio/track.mp3")
	})
	mux.HandleFunc("/audio/track.mp3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("MUSIC"))
	})

	client := NewClient(config.Music{BaseURL: srv.URL, PollAttempts: 5}, WithSleep(noSleep))
	out := filepath.Join(t.TempDir(), "music.mp3")
	ready, err := client.Generate(context.Background(), pipeline.MusicRequest{Theme: "calm", Duration: time.Minute, OutputPath: out})
	if err != nil {
		t.Fatal(err)
	}
	if !ready {
		t.Fatal("expected track to become ready")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "MUSIC" {
		t.Fatalf("unexpected track content %q", data)
	}
	if polls.Load() != 3 {
		t.Fatalf("expected 3 polls, got %d", polls.Load())
	}
}

func TestGenerateExhaustedPollsIsNotAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"task_id":"task-1"}`)
	})
	mux.HandleFunc("/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"pending"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(config.Music{BaseURL: srv.URL, PollAttempts: 3}, WithSleep(noSleep))
	ready, err := client.Generate(context.Background(), pipeline.MusicRequest{Theme: "calm", OutputPath: filepath.Join(t.TempDir(), "m.mp3")})
	if err != nil {
		t.Fatalf("exhausted polling must not error: %v", err)
	}
	if ready {
		t.Fatal("expected not ready")
	}
}

func TestGenerateFailedTaskIsPermanent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"task_id":"task-1"}`)
	})
	mux.HandleFunc("/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"failed","error":"no gpu capacity"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(config.Music{BaseURL: srv.URL}, WithSleep(noSleep))
	_, err := client.Generate(context.Background(), pipeline.MusicRequest{Theme: "calm", OutputPath: filepath.Join(t.TempDir(), "m.mp3")})
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestGenerateSubmitRateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(config.Music{BaseURL: srv.URL}, WithSleep(noSleep))
	_, err := client.Generate(context.Background(), pipeline.MusicRequest{Theme: "calm", OutputPath: filepath.Join(t.TempDir(), "m.mp3")})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestGenerateRequiresBaseURL(t *testing.T) {
	client := NewClient(config.Music{})
	_, err := client.Generate(context.Background(), pipeline.MusicRequest{Theme: "calm"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

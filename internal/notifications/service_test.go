package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fabler/internal/config"
)

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	svc := NewService(config.Notifications{})
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
	if err := svc.NotifyJobCompleted(context.Background(), "Title", "story_video"); err != nil {
		t.Fatalf("noop notify: %v", err)
	}
}

func TestNotifyJobCompletedPublishes(t *testing.T) {
	var gotTitle, gotBody, gotTags string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(config.Notifications{NtfyTopic: server.URL, TimeoutSeconds: 5})
	if err := svc.NotifyJobCompleted(context.Background(), "Harbor Lights", "story_video"); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if gotTitle != "Fabler - Complete" {
		t.Fatalf("unexpected title %q", gotTitle)
	}
	if !strings.Contains(gotBody, "Harbor Lights") || !strings.Contains(gotBody, "story_video") {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if !strings.Contains(gotTags, "completed") {
		t.Fatalf("unexpected tags %q", gotTags)
	}
}

func TestNotifyJobFailedIncludesStageAndMessage(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(config.Notifications{NtfyTopic: server.URL})
	err := svc.NotifyJobFailed(context.Background(), "Broken", "narration", "voice provider rejected the request")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(gotBody, "narration") || !strings.Contains(gotBody, "voice provider rejected the request") {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestSendSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := NewService(config.Notifications{NtfyTopic: server.URL})
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from ntfy failure")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

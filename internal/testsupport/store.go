package testsupport

import (
	"context"
	"testing"

	"fabler/internal/config"
	"fabler/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTextJob creates a pending text-sourced job for tests.
func NewTextJob(t testing.TB, store *queue.Store, title string, kind queue.Kind, style queue.Style) *queue.Job {
	t.Helper()

	input := queue.InputSpec{Kind: queue.SourceText, Text: title}
	job, err := store.NewJob(context.Background(), title, kind, input, style, nil)
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}

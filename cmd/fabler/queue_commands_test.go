package main

import (
	"context"
	"strings"
	"testing"

	"fabler/internal/queue"
)

func failJob(t *testing.T, store *queue.Store, id int64, stage, message string) {
	t.Helper()
	ctx := context.Background()
	claimed, err := store.Claim(ctx, id)
	if err != nil || !claimed {
		t.Fatalf("claim job %d: claimed=%v err=%v", id, claimed, err)
	}
	if err := store.MarkFailed(ctx, id, queue.FailureInfo{Stage: stage, Message: message}); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
}

func TestQueueStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewJob(ctx, "Dragon Tale", queue.KindStoryVideo,
		queue.InputSpec{Kind: queue.SourceText, Text: "a dragon"}, queue.Style{}, nil); err != nil {
		t.Fatalf("dragon job: %v", err)
	}

	beta, err := env.store.NewJob(ctx, "Sea Saga", queue.KindPodcast,
		queue.InputSpec{Kind: queue.SourceText, Text: "the sea"}, queue.Style{}, nil)
	if err != nil {
		t.Fatalf("sea job: %v", err)
	}
	failJob(t, env.store, beta.ID, "story", "model unavailable")

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Pending")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Dragon Tale")
	requireContains(t, out, "Sea Saga")

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list failed: %v", err)
	}
	requireContains(t, out, "Sea Saga")
	if strings.Contains(out, "Dragon Tale") {
		t.Fatalf("expected filtered list to omit pending job, got:\n%s", out)
	}
}

func TestQueueRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	job, err := env.store.NewJob(ctx, "Alpha", queue.KindStoryVideo,
		queue.InputSpec{Kind: queue.SourceText, Text: "alpha"}, queue.Style{}, nil)
	if err != nil {
		t.Fatalf("alpha: %v", err)
	}
	failJob(t, env.store, job.ID, "narration", "synth error")

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed jobs")

	updated, err := env.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("lookup alpha: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}

	failJob(t, env.store, job.ID, "narration", "synth error")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 finished jobs")
}

func TestQueueCancelCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	job, err := env.store.NewJob(ctx, "Cancel Me", queue.KindStoryVideo,
		queue.InputSpec{Kind: queue.SourceText, Text: "cancel"}, queue.Style{}, nil)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "cancel", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue cancel: %v", err)
	}
	requireContains(t, out, "Cancelled job 1")

	updated, err := env.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if updated.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}

	out, _, err = runCLI(t, []string{"queue", "cancel", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	requireContains(t, out, "already finished")
}

func TestQueueHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Database path:")
	requireContains(t, out, "Total jobs: 0")
}

func TestQueueRetrySkipsNonFailed(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewJob(ctx, "Still Pending", queue.KindStoryVideo,
		queue.InputSpec{Kind: queue.SourceText, Text: "pending"}, queue.Style{}, nil); err != nil {
		t.Fatalf("new job: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Job 1 is not failed; skipped")
	requireContains(t, out, "Retried 0 failed jobs")
}

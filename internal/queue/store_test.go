package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTextJob(t *testing.T, store *Store, title string) *Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), title, KindStoryVideo,
		InputSpec{Kind: SourceText, Text: "a fox in the snow"}, Style{}, nil)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return job
}

func TestNewJobDefaultsToPending(t *testing.T) {
	store := newTestStore(t)
	job := newTextJob(t, store, "fox")
	if job.Status != StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.Input.Value() != "a fox in the snow" {
		t.Fatalf("unexpected input value %q", job.Input.Value())
	}
}

func TestNewJobWithScheduleStartsScheduled(t *testing.T) {
	store := newTestStore(t)
	due := time.Now().Add(time.Hour).UTC()
	job, err := store.NewJob(context.Background(), "later", KindPodcast,
		InputSpec{Kind: SourceText, Text: "t"}, Style{Length: "short"}, &due)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Status != StatusScheduled {
		t.Fatalf("expected scheduled, got %s", job.Status)
	}
	if job.ScheduledAt == nil || !job.ScheduledAt.Equal(due.Truncate(time.Nanosecond)) {
		t.Fatalf("scheduled_at not round-tripped: %v", job.ScheduledAt)
	}
}

func TestFindOldestDueSkipsFutureSchedules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	future := time.Now().Add(time.Hour).UTC()
	if _, err := store.NewJob(ctx, "future", KindStoryVideo, InputSpec{Kind: SourceText, Text: "t"}, Style{}, &future); err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	due, err := store.FindOldestDue(ctx, time.Now())
	if err != nil {
		t.Fatalf("FindOldestDue: %v", err)
	}
	if due != nil {
		t.Fatalf("future job should not be due, got #%d", due.ID)
	}

	due, err = store.FindOldestDue(ctx, future.Add(time.Minute))
	if err != nil {
		t.Fatalf("FindOldestDue: %v", err)
	}
	if due == nil {
		t.Fatal("job should be due once scheduled_at has passed")
	}
}

func TestFindOldestDueOrdersByDueTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	early := time.Now().Add(-2 * time.Hour).UTC()
	late := time.Now().Add(-time.Hour).UTC()
	if _, err := store.NewJob(ctx, "late", KindStoryVideo, InputSpec{Kind: SourceText, Text: "t"}, Style{}, &late); err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	older, err := store.NewJob(ctx, "early", KindStoryVideo, InputSpec{Kind: SourceText, Text: "t"}, Style{}, &early)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	due, err := store.FindOldestDue(ctx, time.Now())
	if err != nil {
		t.Fatalf("FindOldestDue: %v", err)
	}
	if due == nil || due.ID != older.ID {
		t.Fatalf("expected earliest scheduled job #%d, got %+v", older.ID, due)
	}
}

func TestClaimIsSingleWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTextJob(t, store, "fox")

	claimed, err := store.Claim(ctx, job.ID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed {
		t.Fatal("first claim should succeed")
	}

	claimed, err = store.Claim(ctx, job.ID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed {
		t.Fatal("second claim must fail on a processing job")
	}
}

func TestMarkCompletedLosesToCancellation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTextJob(t, store, "fox")

	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if ok, err := store.Cancel(ctx, job.ID); err != nil || !ok {
		t.Fatalf("Cancel: ok=%v err=%v", ok, err)
	}

	err := store.MarkCompleted(ctx, job.ID)
	if !errors.Is(err, ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition, got %v", err)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("cancelled status must not be overwritten, got %s", got.Status)
	}
}

func TestCancelRefusesTerminalStates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTextJob(t, store, "fox")

	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := store.MarkCompleted(ctx, job.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	ok, err := store.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if ok {
		t.Fatal("completed jobs must not be cancellable")
	}
}

func TestMarkFailedPersistsFailureInfo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTextJob(t, store, "fox")

	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, FailureInfo{Stage: "story", Message: "upstream 503"}); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.Failure == nil || got.Failure.Stage != "story" || got.Failure.Message != "upstream 503" {
		t.Fatalf("failure info not persisted: %+v", got.Failure)
	}
}

func TestRetryResetsFailedJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTextJob(t, store, "fox")

	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, FailureInfo{Stage: "story", Message: "boom"}); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	ok, err := store.Retry(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("Retry: ok=%v err=%v", ok, err)
	}
	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusPending || got.Failure != nil {
		t.Fatalf("retry should reset status and failure, got %s %+v", got.Status, got.Failure)
	}
}

func TestArtifactsAppendAndLatestWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTextJob(t, store, "fox")

	if _, err := store.AttachArtifact(ctx, job.ID, ArtifactStory, 0, StoryArtifact{Outline: "v1", Script: "s1"}); err != nil {
		t.Fatalf("AttachArtifact: %v", err)
	}
	if _, err := store.AttachArtifact(ctx, job.ID, ArtifactStory, 0, StoryArtifact{Outline: "v2", Script: "s2"}); err != nil {
		t.Fatalf("AttachArtifact: %v", err)
	}

	latest, err := store.LatestArtifact(ctx, job.ID, ArtifactStory)
	if err != nil {
		t.Fatalf("LatestArtifact: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a story artifact")
	}
	var story StoryArtifact
	if err := latest.Decode(&story); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if story.Outline != "v2" {
		t.Fatalf("latest artifact should supersede, got %q", story.Outline)
	}

	all, err := store.ArtifactsByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("ArtifactsByJob: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("artifacts are append-only, expected 2 rows got %d", len(all))
	}
}

func TestEpisodeArtifactsKeepOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTextJob(t, store, "fox")

	for i := 3; i >= 1; i-- {
		if _, err := store.AttachArtifact(ctx, job.ID, ArtifactEpisode, i, EpisodeArtifact{Index: i}); err != nil {
			t.Fatalf("AttachArtifact: %v", err)
		}
	}

	episodes, err := store.EpisodeArtifacts(ctx, job.ID)
	if err != nil {
		t.Fatalf("EpisodeArtifacts: %v", err)
	}
	if len(episodes) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(episodes))
	}
	for i, artifact := range episodes {
		if artifact.Ordinal != i+1 {
			t.Fatalf("episodes out of order: position %d has ordinal %d", i, artifact.Ordinal)
		}
	}
}

func TestHealthCountsStatuses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	newTextJob(t, store, "a")
	b := newTextJob(t, store, "b")
	if _, err := store.Claim(ctx, b.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if summary.Total != 2 || summary.Due != 1 || summary.Processing != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

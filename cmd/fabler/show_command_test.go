package main

import (
	"context"
	"testing"

	"fabler/internal/queue"
)

func TestShowRendersJobAndArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	job, err := env.store.NewJob(ctx, "Harbor Lights", queue.KindStoryVideo,
		queue.InputSpec{Kind: queue.SourceText, Text: "a harbor at dusk"}, queue.Style{Genre: "drama"}, nil)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if _, err := env.store.AttachArtifact(ctx, job.ID, queue.ArtifactStory, 0,
		queue.StoryArtifact{Outline: "1. Dusk", Script: "The harbor glowed."}); err != nil {
		t.Fatalf("attach story: %v", err)
	}
	if _, err := env.store.AttachArtifact(ctx, job.ID, queue.ArtifactVideo, 0,
		queue.VideoArtifact{Path: "/library/0001-harbor-lights.mp4"}); err != nil {
		t.Fatalf("attach video: %v", err)
	}

	out, _, err := runCLI(t, []string{"show", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Job #1: Harbor Lights")
	requireContains(t, out, "Kind: story_video")
	requireContains(t, out, "Status: Pending")
	requireContains(t, out, "/library/0001-harbor-lights.mp4")
}

func TestShowIncludesFailureDetails(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	job, err := env.store.NewJob(ctx, "Broken", queue.KindPodcast,
		queue.InputSpec{Kind: queue.SourceText, Text: "broken"}, queue.Style{}, nil)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	failJob(t, env.store, job.ID, "episodes", "voice provider rejected the request")

	out, _, err := runCLI(t, []string{"show", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, `Failed at stage "episodes"`)
	requireContains(t, out, "voice provider rejected the request")
}

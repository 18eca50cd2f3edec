package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fabler/internal/queue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show details for a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job #%d: %s\n", job.ID, job.Title)
				fmt.Fprintf(out, "Kind: %s\n", job.Kind)
				fmt.Fprintf(out, "Status: %s\n", statusLabel(job.Status))
				fmt.Fprintf(out, "Source: %s\n", describeInput(job.Input))
				if job.ScheduledAt != nil {
					fmt.Fprintf(out, "Scheduled for: %s\n", job.ScheduledAt.Local().Format(time.RFC3339))
				}
				fmt.Fprintf(out, "Created: %s\n", job.CreatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Updated: %s\n", job.UpdatedAt.Local().Format(time.RFC3339))
				if job.Failure != nil {
					fmt.Fprintf(out, "Failed at stage %q: %s\n", job.Failure.Stage, job.Failure.Message)
				}

				artifacts, err := store.ArtifactsByJob(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				if len(artifacts) == 0 {
					return nil
				}

				fmt.Fprintln(out, "\nArtifacts:")
				rows := make([][]string, 0, len(artifacts))
				for _, artifact := range artifacts {
					rows = append(rows, []string{
						string(artifact.Kind),
						strconv.Itoa(artifact.Ordinal),
						artifactSummary(artifact),
					})
				}
				table := renderTable([]string{"Kind", "Ordinal", "Summary"}, rows, 1)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}

func describeInput(input queue.InputSpec) string {
	switch input.Kind {
	case queue.SourceURL:
		return fmt.Sprintf("url (%s)", input.URL)
	case queue.SourceVideo:
		return fmt.Sprintf("video (%s)", input.VideoPath)
	default:
		return "text"
	}
}

// artifactSummary renders a one-line description of the artifact payload.
func artifactSummary(artifact *queue.Artifact) string {
	switch artifact.Kind {
	case queue.ArtifactVideo:
		var payload queue.VideoArtifact
		if err := artifact.Decode(&payload); err == nil {
			return payload.Path
		}
	case queue.ArtifactVoiceTrack:
		var payload queue.VoiceTrackArtifact
		if err := artifact.Decode(&payload); err == nil {
			return fmt.Sprintf("%s (%.1fs)", payload.AudioPath, payload.DurationSeconds)
		}
	case queue.ArtifactEpisode:
		var payload queue.EpisodeArtifact
		if err := artifact.Decode(&payload); err == nil {
			return fmt.Sprintf("%02d %s (%.1fs)", payload.Index, payload.Title, payload.DurationSeconds)
		}
	case queue.ArtifactImageSet:
		var payload queue.ImageSetArtifact
		if err := artifact.Decode(&payload); err == nil {
			return fmt.Sprintf("%d images", len(payload.Paths))
		}
	case queue.ArtifactStory:
		var payload queue.StoryArtifact
		if err := artifact.Decode(&payload); err == nil {
			return fmt.Sprintf("%d characters", len(payload.Script))
		}
	case queue.ArtifactInput:
		var payload queue.InputArtifact
		if err := artifact.Decode(&payload); err == nil {
			return fmt.Sprintf("%d characters (%s)", len(payload.Text), payload.Provenance)
		}
	}
	return "(unreadable payload)"
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fabler/internal/queue"
)

const titleWordLimit = 6

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		kindFlag  string
		urlFlag   string
		videoFlag string
		titleFlag string
		atFlag    string

		genreFlag    string
		toneFlag     string
		wordsFlag    int
		lengthFlag   string
		episodesFlag int
		voiceFlag    string
	)

	cmd := &cobra.Command{
		Use:   "add [idea text]",
		Short: "Queue a new content-generation job",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := queue.Kind(strings.TrimSpace(kindFlag))
			if !queue.ValidKind(kind) {
				return fmt.Errorf("unknown job kind %q (expected %s, %s, or %s)",
					kindFlag, queue.KindStoryVideo, queue.KindPodcast, queue.KindVoiceClone)
			}

			input, err := buildInputSpec(args, urlFlag, videoFlag)
			if err != nil {
				return err
			}

			title := strings.TrimSpace(titleFlag)
			if title == "" {
				title = deriveTitle(input)
			}
			if title == "" {
				return errors.New("unable to derive a title; pass --title")
			}

			scheduledAt, err := parseScheduledAt(atFlag)
			if err != nil {
				return err
			}

			style := queue.Style{
				Genre:        strings.TrimSpace(genreFlag),
				Tone:         strings.TrimSpace(toneFlag),
				TargetWords:  wordsFlag,
				Length:       strings.TrimSpace(lengthFlag),
				EpisodeCount: episodesFlag,
				VoiceID:      strings.TrimSpace(voiceFlag),
			}

			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.NewJob(cmd.Context(), title, kind, input, style, scheduledAt)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if job.ScheduledAt != nil {
					fmt.Fprintf(out, "Queued %s job #%d (%s), scheduled for %s\n",
						job.Kind, job.ID, job.Title, job.ScheduledAt.Local().Format(time.RFC3339))
					return nil
				}
				fmt.Fprintf(out, "Queued %s job #%d (%s)\n", job.Kind, job.ID, job.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", string(queue.KindStoryVideo), "Job kind: story_video, podcast, or voice_clone")
	cmd.Flags().StringVar(&urlFlag, "url", "", "Fetch the idea from a web page instead of idea text")
	cmd.Flags().StringVar(&videoFlag, "video", "", "Transcribe a local video file as the idea source")
	cmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Job title (derived from the input when omitted)")
	cmd.Flags().StringVar(&atFlag, "at", "", "Defer the job until the given time (RFC 3339 or \"2006-01-02 15:04\")")
	cmd.Flags().StringVar(&genreFlag, "genre", "", "Story genre override")
	cmd.Flags().StringVar(&toneFlag, "tone", "", "Story tone override")
	cmd.Flags().IntVar(&wordsFlag, "words", 0, "Target story length in words")
	cmd.Flags().StringVar(&lengthFlag, "length", "", "Podcast length preset: short, medium, or long")
	cmd.Flags().IntVar(&episodesFlag, "episodes", 0, "Explicit podcast episode count (overrides --length)")
	cmd.Flags().StringVar(&voiceFlag, "voice", "", "Voice ID for narration or cloning")

	return cmd
}

func buildInputSpec(args []string, urlFlag, videoFlag string) (queue.InputSpec, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	url := strings.TrimSpace(urlFlag)
	video := strings.TrimSpace(videoFlag)

	sources := 0
	for _, s := range []string{text, url, video} {
		if s != "" {
			sources++
		}
	}
	if sources == 0 {
		return queue.InputSpec{}, errors.New("provide idea text, --url, or --video")
	}
	if sources > 1 {
		return queue.InputSpec{}, errors.New("idea text, --url, and --video are mutually exclusive")
	}

	switch {
	case url != "":
		return queue.InputSpec{Kind: queue.SourceURL, URL: url}, nil
	case video != "":
		absPath, err := filepath.Abs(video)
		if err != nil {
			return queue.InputSpec{}, fmt.Errorf("resolve path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return queue.InputSpec{}, fmt.Errorf("video file does not exist: %s", absPath)
			}
			return queue.InputSpec{}, fmt.Errorf("inspect video file: %w", err)
		}
		if info.IsDir() {
			return queue.InputSpec{}, fmt.Errorf("%s is a directory", absPath)
		}
		return queue.InputSpec{Kind: queue.SourceVideo, VideoPath: absPath}, nil
	default:
		return queue.InputSpec{Kind: queue.SourceText, Text: text}, nil
	}
}

// deriveTitle produces a short display title from whichever input field is set.
func deriveTitle(input queue.InputSpec) string {
	switch input.Kind {
	case queue.SourceText:
		words := strings.Fields(input.Text)
		if len(words) > titleWordLimit {
			words = words[:titleWordLimit]
		}
		return cases.Title(language.Und).String(strings.Join(words, " "))
	case queue.SourceURL:
		trimmed := strings.TrimRight(input.URL, "/")
		if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && idx < len(trimmed)-1 {
			slug := strings.NewReplacer("-", " ", "_", " ").Replace(trimmed[idx+1:])
			return cases.Title(language.Und).String(slug)
		}
		return trimmed
	case queue.SourceVideo:
		base := filepath.Base(input.VideoPath)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		slug := strings.NewReplacer("-", " ", "_", " ").Replace(base)
		return cases.Title(language.Und).String(slug)
	default:
		return ""
	}
}

func parseScheduledAt(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"} {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			utc := ts.UTC()
			return &utc, nil
		}
	}
	return nil, fmt.Errorf("unrecognized --at time %q", value)
}

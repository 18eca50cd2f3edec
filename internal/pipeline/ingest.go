package pipeline

import (
	"context"
	"os"
	"strings"
	"time"

	"fabler/internal/queue"
	"fabler/internal/services"
)

// runIngest resolves the job's input variant into narratable text and
// records it as the input artifact.
func (e *Engine) runIngest(ctx context.Context, env *jobEnv) error {
	input := env.job.Input
	switch input.Kind {
	case queue.SourceURL:
		url := strings.TrimSpace(input.URL)
		if url == "" {
			return services.Wrap(services.ErrPermanent, StageIngest, "resolve input", "url job carries no url", nil)
		}
		text, err := withRetry(ctx, e, func(ctx context.Context) (string, error) {
			return e.adapters.Fetcher.FetchText(ctx, url)
		})
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return services.Wrap(services.ErrPermanent, StageIngest, "fetch url", "page yielded no readable text", nil)
		}
		env.input = queue.InputArtifact{Text: strings.TrimSpace(text), Provenance: queue.SourceURL, Processed: true}

	case queue.SourceVideo:
		text, err := e.transcribeVideo(ctx, env, strings.TrimSpace(input.VideoPath))
		if err != nil {
			return err
		}
		env.input = queue.InputArtifact{Text: text, Provenance: queue.SourceVideo, Processed: true}

	default:
		text := strings.TrimSpace(input.Text)
		if text == "" {
			return services.Wrap(services.ErrPermanent, StageIngest, "resolve input", "job carries no input text", nil)
		}
		env.input = queue.InputArtifact{Text: text, Provenance: queue.SourceText, Processed: true}
	}

	_, err := e.store.AttachArtifact(ctx, env.job.ID, queue.ArtifactInput, 0, env.input)
	return err
}

// transcribeVideo extracts the audio track, splits it into chunks the
// transcription service accepts, and joins the chunk transcripts in
// order.
func (e *Engine) transcribeVideo(ctx context.Context, env *jobEnv, videoPath string) (string, error) {
	if videoPath == "" {
		return "", services.Wrap(services.ErrPermanent, StageIngest, "resolve input", "video job carries no path", nil)
	}
	if _, err := os.Stat(videoPath); err != nil {
		return "", services.Wrap(services.ErrResource, StageIngest, "stat video", "source video is not readable", err)
	}

	audioPath := env.area.Join("source-audio.mp3")
	if err := e.adapters.Media.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return "", err
	}

	chunk := time.Duration(e.cfg.Transcribe.ChunkMinutes) * time.Minute
	duration, err := e.adapters.Media.Duration(ctx, audioPath)
	if err != nil {
		return "", err
	}

	chunkPaths := []string{audioPath}
	if chunk > 0 && duration > chunk {
		chunkDir := env.area.Join("audio-chunks")
		if err := os.MkdirAll(chunkDir, 0o755); err != nil {
			return "", services.Wrap(services.ErrResource, StageIngest, "split audio", "could not create chunk directory", err)
		}
		chunkPaths, err = e.adapters.Media.SplitAudio(ctx, audioPath, chunk, chunkDir)
		if err != nil {
			return "", err
		}
	}

	parts := make([]string, 0, len(chunkPaths))
	for _, path := range chunkPaths {
		transcript, err := withRetry(ctx, e, func(ctx context.Context) (string, error) {
			return e.adapters.Transcriber.Transcribe(ctx, path)
		})
		if err != nil {
			return "", err
		}
		if trimmed := strings.TrimSpace(transcript); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return "", services.Wrap(services.ErrPermanent, StageIngest, "transcribe audio", "video produced an empty transcript", nil)
	}
	return strings.Join(parts, "\n\n"), nil
}

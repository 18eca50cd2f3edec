package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"fabler/internal/fileutil"
	"fabler/internal/logging"
	"fabler/internal/queue"
	"fabler/internal/scenes"
	"fabler/internal/services"
)

// runAssemble composes the final video from the storyboard images and
// narration track, burns in captions, mixes optional background music,
// and publishes the result into the library.
func (e *Engine) runAssemble(ctx context.Context, env *jobEnv) error {
	logger := logging.WithContext(ctx, e.logger)

	units := scenes.Split(env.voice.Script)
	total := time.Duration(env.voice.DurationSeconds * float64(time.Second))
	captions := scenes.AllocateCaptions(total, units)
	if len(captions) == 0 {
		return services.Wrap(services.ErrPermanent, StageAssemble, "allocate captions", "narration has no usable duration", nil)
	}

	subtitlePath := env.area.Join("captions.srt")
	if err := os.WriteFile(subtitlePath, []byte(scenes.FormatSRT(captions)), 0o644); err != nil {
		return services.Wrap(services.ErrResource, StageAssemble, "write subtitles", "could not write subtitle file", err)
	}

	musicPath := ""
	if e.cfg.Music.Enabled && e.adapters.Music != nil {
		candidate := env.area.Join("music.mp3")
		ready, err := e.adapters.Music.Generate(ctx, MusicRequest{
			Theme:      env.story.Outline,
			Duration:   total,
			OutputPath: candidate,
		})
		switch {
		case err != nil:
			logger.Warn("background music unavailable, assembling without it", logging.Error(err))
		case ready:
			musicPath = candidate
		default:
			logger.Info("background music track never became ready, assembling without it")
		}
	}

	durations := make([]time.Duration, len(captions))
	for i, caption := range captions {
		durations[i] = caption.End - caption.Start
	}

	rendered := env.area.Join("story.mp4")
	req := AssembleRequest{
		ImagePaths:   env.scene.Paths,
		AudioPath:    env.voice.AudioPath,
		SubtitlePath: subtitlePath,
		MusicPath:    musicPath,
		Durations:    durations,
		OutputPath:   rendered,
	}
	if err := e.retryCall(ctx, func(ctx context.Context) error {
		return e.adapters.Video.Assemble(ctx, req)
	}); err != nil {
		return err
	}

	final := filepath.Join(e.cfg.Paths.LibraryDir, outputName(env.job, "mp4"))
	if err := fileutil.MoveFile(rendered, final); err != nil {
		return services.Wrap(services.ErrResource, StageAssemble, "publish video", "could not move video into library", err)
	}

	_, err := e.store.AttachArtifact(ctx, env.job.ID, queue.ArtifactVideo, 0, queue.VideoArtifact{Path: final})
	return err
}

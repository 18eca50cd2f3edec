package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"fabler/internal/fileutil"
	"fabler/internal/queue"
	"fabler/internal/services"
)

// runVoiceClone narrates the resolved input text verbatim with the
// requested voice and publishes the track into the library. No script
// generation or video assembly happens for this kind.
func (e *Engine) runVoiceClone(ctx context.Context, env *jobEnv) error {
	voiceID := strings.TrimSpace(env.job.Style.VoiceID)
	if voiceID == "" {
		return services.Wrap(services.ErrConfiguration, StageVoiceClone, "select voice", "voice_clone jobs require a voice_id", nil)
	}

	out := env.area.Join("voice.mp3")
	req := VoiceRequest{Script: env.input.Text, VoiceID: voiceID, OutputPath: out}
	if err := e.retryCall(ctx, func(ctx context.Context) error {
		return e.adapters.Voice.Synthesize(ctx, req)
	}); err != nil {
		return err
	}

	duration, err := e.adapters.Media.Duration(ctx, out)
	if err != nil {
		return err
	}

	final := filepath.Join(e.cfg.Paths.LibraryDir, outputName(env.job, "mp3"))
	if err := fileutil.MoveFile(out, final); err != nil {
		return services.Wrap(services.ErrResource, StageVoiceClone, "publish audio", "could not move audio into library", err)
	}

	_, err = e.store.AttachArtifact(ctx, env.job.ID, queue.ArtifactVoiceTrack, 0, queue.VoiceTrackArtifact{
		AudioPath:       final,
		Script:          env.input.Text,
		DurationSeconds: duration.Seconds(),
	})
	return err
}

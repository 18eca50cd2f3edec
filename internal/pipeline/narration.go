package pipeline

import (
	"context"

	"fabler/internal/queue"
)

// runNarration synthesizes the spoken track for the story script and
// probes its duration for caption timing.
func (e *Engine) runNarration(ctx context.Context, env *jobEnv) error {
	out := env.area.Join("narration.mp3")
	req := VoiceRequest{
		Script:     env.story.Script,
		VoiceID:    firstNonEmpty(env.job.Style.VoiceID, e.cfg.TTS.VoiceID),
		OutputPath: out,
	}
	if err := e.retryCall(ctx, func(ctx context.Context) error {
		return e.adapters.Voice.Synthesize(ctx, req)
	}); err != nil {
		return err
	}

	duration, err := e.adapters.Media.Duration(ctx, out)
	if err != nil {
		return err
	}

	env.voice = queue.VoiceTrackArtifact{
		AudioPath:       out,
		Script:          env.story.Script,
		DurationSeconds: duration.Seconds(),
	}
	_, err = e.store.AttachArtifact(ctx, env.job.ID, queue.ArtifactVoiceTrack, 0, env.voice)
	return err
}

package pipeline

import (
	"context"
	"strings"

	"fabler/internal/queue"
	"fabler/internal/services"
)

// runStory turns the resolved input into an outline and script.
func (e *Engine) runStory(ctx context.Context, env *jobEnv) error {
	req := StoryRequest{
		Source:      env.input.Text,
		Genre:       firstNonEmpty(env.job.Style.Genre, e.cfg.Story.Genre),
		Tone:        firstNonEmpty(env.job.Style.Tone, e.cfg.Story.Tone),
		TargetWords: env.job.Style.TargetWords,
	}
	if req.TargetWords <= 0 {
		req.TargetWords = e.cfg.Story.WordsPerStory
	}

	story, err := withRetry(ctx, e, func(ctx context.Context) (queue.StoryArtifact, error) {
		return e.adapters.Story.GenerateStory(ctx, req)
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(story.Script) == "" {
		return services.Wrap(services.ErrPermanent, StageStory, "generate story", "generator returned an empty script", nil)
	}

	env.story = story
	_, err = e.store.AttachArtifact(ctx, env.job.ID, queue.ArtifactStory, 0, story)
	return err
}

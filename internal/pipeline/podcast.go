package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"fabler/internal/fileutil"
	"fabler/internal/queue"
	"fabler/internal/services"
)

const (
	episodesShort   = 2
	episodesMedium  = 4
	episodesLong    = 6
	episodesDefault = episodesMedium
)

// episodeCount resolves the requested series length. An explicit count
// wins over a named length.
func episodeCount(style queue.Style) int {
	if style.EpisodeCount > 0 {
		return style.EpisodeCount
	}
	switch strings.ToLower(strings.TrimSpace(style.Length)) {
	case "short":
		return episodesShort
	case "long":
		return episodesLong
	case "medium":
		return episodesMedium
	}
	return episodesDefault
}

// runEpisodePlan serializes the source material into episode scripts
// and records the plan as the story artifact.
func (e *Engine) runEpisodePlan(ctx context.Context, env *jobEnv) error {
	req := EpisodeRequest{
		Source:       env.input.Text,
		Genre:        firstNonEmpty(env.job.Style.Genre, e.cfg.Story.Genre),
		Tone:         firstNonEmpty(env.job.Style.Tone, e.cfg.Story.Tone),
		TargetWords:  env.job.Style.TargetWords,
		EpisodeCount: episodeCount(env.job.Style),
	}
	if req.TargetWords <= 0 {
		req.TargetWords = e.cfg.Story.WordsPerStory
	}

	episodes, err := withRetry(ctx, e, func(ctx context.Context) ([]EpisodeScript, error) {
		return e.adapters.Story.GenerateEpisodes(ctx, req)
	})
	if err != nil {
		return err
	}
	if len(episodes) == 0 {
		return services.Wrap(services.ErrPermanent, StageStory, "plan episodes", "generator returned no episodes", nil)
	}
	for i := range episodes {
		if episodes[i].Index <= 0 {
			episodes[i].Index = i + 1
		}
		if strings.TrimSpace(episodes[i].Script) == "" {
			return services.Wrap(services.ErrPermanent, StageStory, "plan episodes",
				fmt.Sprintf("episode %d has an empty script", episodes[i].Index), nil)
		}
	}
	env.episodes = episodes

	titles := make([]string, len(episodes))
	scripts := make([]string, len(episodes))
	for i, ep := range episodes {
		titles[i] = fmt.Sprintf("%d. %s", ep.Index, ep.Title)
		scripts[i] = ep.Script
	}
	story := queue.StoryArtifact{
		Outline: strings.Join(titles, "\n"),
		Script:  strings.Join(scripts, "\n\n"),
	}
	env.story = story
	_, err = e.store.AttachArtifact(ctx, env.job.ID, queue.ArtifactStory, 0, story)
	return err
}

// runEpisodes narrates each planned episode and publishes the audio
// files into the library, one episode artifact per file.
func (e *Engine) runEpisodes(ctx context.Context, env *jobEnv) error {
	voiceID := firstNonEmpty(env.job.Style.VoiceID, e.cfg.TTS.VoiceID)
	for _, ep := range env.episodes {
		out := env.area.Join(fmt.Sprintf("episode-%02d.mp3", ep.Index))
		req := VoiceRequest{Script: ep.Script, VoiceID: voiceID, OutputPath: out}
		if err := e.retryCall(ctx, func(ctx context.Context) error {
			return e.adapters.Voice.Synthesize(ctx, req)
		}); err != nil {
			return err
		}

		duration, err := e.adapters.Media.Duration(ctx, out)
		if err != nil {
			return err
		}

		final := filepath.Join(e.cfg.Paths.LibraryDir, episodeName(env.job, ep.Index, "mp3"))
		if err := fileutil.MoveFile(out, final); err != nil {
			return services.Wrap(services.ErrResource, StageEpisodes, "publish episode", "could not move episode into library", err)
		}

		artifact := queue.EpisodeArtifact{
			Index:           ep.Index,
			Title:           ep.Title,
			Script:          ep.Script,
			AudioPath:       final,
			DurationSeconds: duration.Seconds(),
		}
		if _, err := e.store.AttachArtifact(ctx, env.job.ID, queue.ArtifactEpisode, ep.Index, artifact); err != nil {
			return err
		}
	}
	return nil
}

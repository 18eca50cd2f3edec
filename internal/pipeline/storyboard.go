package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"fabler/internal/queue"
	"fabler/internal/scenes"
	"fabler/internal/services"
)

// runStoryboard renders one illustration per scene. Scenes fan out to a
// bounded worker pool; results are collected in scene order.
func (e *Engine) runStoryboard(ctx context.Context, env *jobEnv) error {
	units := scenes.Split(env.story.Script)
	if len(units) == 0 {
		return services.Wrap(services.ErrPermanent, StageStoryboard, "split scenes", "script yielded no scenes", nil)
	}

	fanOut := e.cfg.Workflow.ImageFanOut
	if fanOut <= 0 {
		fanOut = 1
	}
	pool, err := ants.NewPool(fanOut)
	if err != nil {
		return fmt.Errorf("create image worker pool: %w", err)
	}
	defer pool.Release()

	paths := make([]string, len(units))
	errs := make([]error, len(units))
	var wg sync.WaitGroup
	for i, unit := range units {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			out := env.area.Join(fmt.Sprintf("scene-%02d.png", i+1))
			req := ImageRequest{Prompt: e.scenePrompt(unit), OutputPath: out}
			if err := e.retryCall(ctx, func(ctx context.Context) error {
				return e.adapters.Images.RenderScene(ctx, req)
			}); err != nil {
				errs[i] = err
				return
			}
			paths[i] = out
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit scene %d: %w", i+1, submitErr)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	env.scene = queue.ImageSetArtifact{Paths: paths}
	_, err = e.store.AttachArtifact(ctx, env.job.ID, queue.ArtifactImageSet, 0, env.scene)
	return err
}

func (e *Engine) scenePrompt(unit string) string {
	style := strings.TrimSpace(e.cfg.Images.StylePrompt)
	if style == "" {
		return unit
	}
	return unit + "\n\n" + style
}

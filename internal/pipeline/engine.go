package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fabler/internal/config"
	"fabler/internal/logging"
	"fabler/internal/notifications"
	"fabler/internal/queue"
	"fabler/internal/retry"
	"fabler/internal/services"
	"fabler/internal/staging"
)

// Stage names as they appear in failure records and log fields.
const (
	StageSetup      = "setup"
	StageIngest     = "ingest"
	StageStory      = "story"
	StageStoryboard = "storyboard"
	StageNarration  = "narration"
	StageAssemble   = "assemble"
	StageEpisodes   = "episodes"
	StageVoiceClone = "voice_clone"
)

// Engine runs one claimed job through the stage sequence for its kind.
type Engine struct {
	cfg      *config.Config
	store    *queue.Store
	staging  *staging.Manager
	adapters Adapters
	notifier notifications.Service
	logger   *slog.Logger
	policy   retry.Policy
}

// Option customizes engine construction.
type Option func(*Engine)

// WithNotifier routes job completion and failure events to svc.
func WithNotifier(svc notifications.Service) Option {
	return func(e *Engine) {
		if svc != nil {
			e.notifier = svc
		}
	}
}

// New builds an engine over the supplied store, scratch manager, and
// upstream adapters.
func New(cfg *config.Config, store *queue.Store, stagingMgr *staging.Manager, adapters Adapters, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	engine := &Engine{
		cfg:      cfg,
		store:    store,
		staging:  stagingMgr,
		adapters: adapters,
		notifier: notifications.NewService(cfg.Notifications),
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		policy: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Delay:       time.Duration(cfg.Retry.DelaySeconds) * time.Second,
			Retryable:   services.Retryable,
		},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

type stageStep struct {
	name string
	run  func(ctx context.Context, env *jobEnv) error
}

// jobEnv carries intermediate stage outputs for the duration of one run.
type jobEnv struct {
	job      *queue.Job
	area     *staging.Area
	input    queue.InputArtifact
	story    queue.StoryArtifact
	voice    queue.VoiceTrackArtifact
	scene    queue.ImageSetArtifact
	episodes []EpisodeScript
}

func (e *Engine) plan(kind queue.Kind) []stageStep {
	switch kind {
	case queue.KindPodcast:
		return []stageStep{
			{StageIngest, e.runIngest},
			{StageStory, e.runEpisodePlan},
			{StageEpisodes, e.runEpisodes},
		}
	case queue.KindVoiceClone:
		return []stageStep{
			{StageIngest, e.runIngest},
			{StageVoiceClone, e.runVoiceClone},
		}
	default:
		return []stageStep{
			{StageIngest, e.runIngest},
			{StageStory, e.runStory},
			{StageStoryboard, e.runStoryboard},
			{StageNarration, e.runNarration},
			{StageAssemble, e.runAssemble},
		}
	}
}

// Run executes every stage for the job, which must already hold the
// processing status. Failures are persisted with the failing stage;
// cancellation is honored at stage boundaries.
func (e *Engine) Run(ctx context.Context, job *queue.Job) error {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, e.logger)

	area, err := e.staging.Acquire(job.ID)
	if err != nil {
		wrapped := services.Wrap(services.ErrResource, StageSetup, "acquire scratch", "could not create scratch directory", err)
		return e.fail(ctx, logger, job, StageSetup, wrapped)
	}
	defer func() {
		if err := e.staging.Release(area); err != nil {
			logger.Warn("scratch release failed", logging.Error(err))
		}
	}()

	env := &jobEnv{job: job, area: area}
	for _, step := range e.plan(job.Kind) {
		cancelled, err := e.store.IsCancelled(ctx, job.ID)
		if err != nil {
			logger.Warn("cancellation check failed", logging.Error(err))
		} else if cancelled {
			logger.Info(
				"job cancelled, stopping before next stage",
				logging.String(logging.FieldEventType, "job_cancelled"),
				logging.String("next_stage", step.name),
			)
			return nil
		}

		stageCtx := services.WithStage(ctx, step.name)
		stageLogger := logging.WithContext(stageCtx, e.logger)
		stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
		started := time.Now()

		if err := step.run(stageCtx, env); err != nil {
			return e.fail(stageCtx, stageLogger, job, step.name, err)
		}

		stageLogger.Info(
			"stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		)
	}

	if err := e.store.MarkCompleted(ctx, job.ID); err != nil {
		if errors.Is(err, queue.ErrStaleTransition) {
			logger.Info("completion superseded by cancellation", logging.String(logging.FieldEventType, "job_cancelled"))
			return nil
		}
		return fmt.Errorf("mark job completed: %w", err)
	}
	logger.Info("job completed", logging.String(logging.FieldEventType, "job_complete"))
	if err := e.notifier.NotifyJobCompleted(ctx, job.Title, string(job.Kind)); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}

func (e *Engine) fail(ctx context.Context, logger *slog.Logger, job *queue.Job, stageName string, stageErr error) error {
	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" && stageErr != nil {
		message = strings.TrimSpace(stageErr.Error())
	}

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	failure := queue.FailureInfo{Stage: stageName, Message: message}
	if err := e.store.MarkFailed(ctx, job.ID, failure); err != nil {
		if errors.Is(err, queue.ErrStaleTransition) {
			logger.Info("failure superseded by cancellation", logging.String(logging.FieldEventType, "job_cancelled"))
			return nil
		}
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	if err := e.notifier.NotifyJobFailed(ctx, job.Title, stageName, message); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	return stageErr
}

// withRetry applies the configured retry policy to one upstream call.
func withRetry[T any](ctx context.Context, e *Engine, op func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, e.policy, op)
}

// retryCall is withRetry for operations that only report an error.
func (e *Engine) retryCall(ctx context.Context, op func(context.Context) error) error {
	_, err := retry.Do(ctx, e.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fabler/internal/config"
	"fabler/internal/logging"
	"fabler/internal/queue"
)

// JobRunner executes one claimed job to a terminal status.
type JobRunner interface {
	Run(ctx context.Context, job *queue.Job) error
}

// Manager polls the queue on an interval and drives due jobs through
// the runner. At most one job is in flight at a time: a tick that
// arrives while a job is running is a logged no-op.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	runner        JobRunner
	logger        *slog.Logger
	pollInterval  time.Duration
	errorInterval time.Duration

	// slot holds one token; taking it grants the right to run a job.
	slot chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	jobs    sync.WaitGroup
}

// NewManager constructs a scheduler over the store and runner.
func NewManager(cfg *config.Config, store *queue.Store, runner JobRunner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	slot := make(chan struct{}, 1)
	slot <- struct{}{}
	return &Manager{
		cfg:           cfg,
		store:         store,
		runner:        runner,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		slot:          slot,
	}
}

// Start begins background polling.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop halts polling and waits for the in-flight job to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.jobs.Wait()
}

// Running reports whether the poll loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Busy reports whether a job is currently in flight.
func (m *Manager) Busy() bool {
	return len(m.slot) == 0
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		interval := m.pollInterval
		if err := m.Tick(ctx); err != nil {
			m.logger.Error(
				"queue poll failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_poll_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			if m.errorInterval > 0 {
				interval = m.errorInterval
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Tick performs one poll: if no job is in flight, the oldest due job
// is claimed and started in the background. Tick never blocks on job
// execution.
func (m *Manager) Tick(ctx context.Context) error {
	select {
	case <-m.slot:
	default:
		m.logger.Debug("job in flight, skipping poll", logging.String(logging.FieldEventType, "poll_skipped"))
		return nil
	}

	job, err := m.claimNext(ctx)
	if err != nil || job == nil {
		m.slot <- struct{}{}
		return err
	}

	m.logger.Info(
		"job claimed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("kind", string(job.Kind)),
		logging.String("title", job.Title),
		logging.String(logging.FieldEventType, "job_claimed"),
	)

	m.jobs.Add(1)
	go func() {
		defer m.jobs.Done()
		defer func() { m.slot <- struct{}{} }()
		if err := m.runner.Run(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error(
				"job run failed",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_run_failed"),
			)
		}
	}()
	return nil
}

// claimNext finds the oldest due job and claims it, tolerating the
// race where another transition lands between find and claim.
func (m *Manager) claimNext(ctx context.Context) (*queue.Job, error) {
	job, err := m.store.FindOldestDue(ctx, time.Now())
	if err != nil || job == nil {
		return nil, err
	}
	claimed, err := m.store.Claim(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}
	job.Status = queue.StatusProcessing
	return job, nil
}

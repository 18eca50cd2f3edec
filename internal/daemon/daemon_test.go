package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fabler/internal/config"
	"fabler/internal/logging"
	"fabler/internal/queue"
	"fabler/internal/staging"
	"fabler/internal/testsupport"
	"fabler/internal/workflow"
)

type idleRunner struct{}

func (idleRunner) Run(ctx context.Context, job *queue.Job) error { return nil }

func newTestDaemon(t *testing.T) (*Daemon, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	stagingMgr, err := staging.NewManager(cfg.Paths.ScratchDir, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	mgr := workflow.NewManager(cfg, store, idleRunner{}, logging.NewNop())
	d, err := New(cfg, store, logging.NewNop(), mgr, stagingMgr)
	if err != nil {
		t.Fatal(err)
	}
	return d, cfg
}

func TestStartRejectsSecondInstance(t *testing.T) {
	first, cfg := newTestDaemon(t)
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer first.Stop()

	store, err := queue.OpenPath(filepath.Join(filepath.Dir(cfg.Paths.LogDir), "queue2.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	mgr := workflow.NewManager(cfg, store, idleRunner{}, logging.NewNop())
	second, err := New(cfg, store, logging.NewNop(), mgr, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance must be rejected while the lock is held")
	}
}

func TestStartSweepsStaleScratch(t *testing.T) {
	d, cfg := newTestDaemon(t)
	cfg.Workflow.ScratchMaxAgeHours = 1

	stale := filepath.Join(cfg.Paths.ScratchDir, "job-9-deadbeef")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale scratch should be removed, stat err = %v", err)
	}
}

func TestStopReleasesLock(t *testing.T) {
	d, cfg := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatal(err)
	}
	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("daemon reports running after stop")
	}

	store, err := queue.OpenPath(filepath.Join(filepath.Dir(cfg.Paths.LogDir), "queue3.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	mgr := workflow.NewManager(cfg, store, idleRunner{}, logging.NewNop())
	next, err := New(cfg, store, logging.NewNop(), mgr, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := next.Start(ctx); err != nil {
		t.Fatalf("lock should be free after stop: %v", err)
	}
	next.Stop()
}

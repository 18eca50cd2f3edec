// Package staging manages per-job scratch directories: isolated
// acquisition, confined release, and stale-directory sweeps.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"fabler/internal/logging"
	"fabler/internal/services"
)

// Manager hands out scratch areas under a single configured root and
// refuses to delete anything outside it.
type Manager struct {
	root   string
	logger *slog.Logger
}

// Area is one job's isolated scratch directory.
type Area struct {
	path     string
	released bool
}

// NewManager creates (if needed) the scratch root and returns a manager
// confined to it.
func NewManager(root string, logger *slog.Logger) (*Manager, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "staging", "new", "scratch root is required", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, services.Wrap(services.ErrResource, "staging", "new", "resolve scratch root", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, services.Wrap(services.ErrResource, "staging", "new", "create scratch root", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{root: abs, logger: logging.NewComponentLogger(logger, "staging")}, nil
}

// Root returns the confinement root.
func (m *Manager) Root() string {
	return m.root
}

// Acquire creates a uniquely named scratch directory for the job.
func (m *Manager) Acquire(jobID int64) (*Area, error) {
	name := fmt.Sprintf("job-%d-%s", jobID, uuid.NewString()[:8])
	path := filepath.Join(m.root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, services.Wrap(services.ErrResource, "staging", "acquire", "create scratch area", err)
	}
	return &Area{path: path}, nil
}

// Path returns the scratch directory location.
func (a *Area) Path() string {
	return a.path
}

// Join resolves elements relative to the scratch directory.
func (a *Area) Join(elem ...string) string {
	return filepath.Join(append([]string{a.path}, elem...)...)
}

// Release recursively removes the area. Individual deletion failures
// are logged and skipped; cleanup problems never surface as job
// failures. Deleting anything outside the configured root is refused.
func (m *Manager) Release(area *Area) error {
	if area == nil || area.released {
		return nil
	}
	area.released = true

	if err := m.confine(area.path); err != nil {
		return err
	}

	// Remove files individually so one stubborn entry does not strand
	// the rest of the tree.
	walkErr := filepath.WalkDir(area.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			m.logger.Warn("scratch walk failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
			)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to remove scratch file",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
			)
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.ErrNotExist) {
		m.logger.Warn("scratch cleanup incomplete", logging.String("path", area.path), logging.Error(walkErr))
	}

	if err := os.RemoveAll(area.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn("failed to remove scratch area",
			logging.String("path", area.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
		)
	}
	return nil
}

func (m *Manager) confine(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return services.Wrap(services.ErrResource, "staging", "release", "resolve area path", err)
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return services.Wrap(services.ErrResource, "staging", "release",
			fmt.Sprintf("refusing to delete %s outside scratch root %s", abs, m.root), nil)
	}
	return nil
}

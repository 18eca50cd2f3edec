package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewJob inserts a job. Status starts at pending, or scheduled when a
// due time is supplied.
func (s *Store) NewJob(ctx context.Context, title string, kind Kind, input InputSpec, style Style, scheduledAt *time.Time) (*Job, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}
	status := StatusPending
	if scheduledAt != nil {
		status = StatusScheduled
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input spec: %w", err)
	}
	styleJSON, err := json.Marshal(style)
	if err != nil {
		return nil, fmt.Errorf("encode style: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (title, kind, status, input_json, style_json, scheduled_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(title),
		string(kind),
		string(status),
		string(inputJSON),
		string(styleJSON),
		nullableTime(scheduledAt),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindOldestDue returns the single oldest job that is due at now:
// pending jobs immediately, scheduled jobs once scheduled_at has
// passed. Returns nil when nothing is due.
func (s *Store) FindOldestDue(ctx context.Context, now time.Time) (*Job, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs
         WHERE status IN (?, ?)
           AND (scheduled_at IS NULL OR scheduled_at <= ?)
         ORDER BY COALESCE(scheduled_at, created_at) ASC, id ASC
         LIMIT 1`,
		string(StatusPending),
		string(StatusScheduled),
		now.UTC().Format(time.RFC3339Nano),
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find oldest due: %w", err)
	}
	return job, nil
}

// Claim atomically transitions a due job to processing. It reports
// false when another claimer or a cancellation got there first.
func (s *Store) Claim(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		string(StatusProcessing),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		string(StatusPending),
		string(StatusScheduled),
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job rows affected: %w", err)
	}
	return affected == 1, nil
}

// MarkCompleted transitions a processing job to completed. A job that
// was cancelled mid-run keeps its cancelled status; ErrStaleTransition
// is returned so the caller can observe the race.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	return s.transitionFromProcessing(ctx, id, StatusCompleted, nil)
}

// MarkFailed transitions a processing job to failed with failure detail.
func (s *Store) MarkFailed(ctx context.Context, id int64, failure FailureInfo) error {
	return s.transitionFromProcessing(ctx, id, StatusFailed, &failure)
}

func (s *Store) transitionFromProcessing(ctx context.Context, id int64, to Status, failure *FailureInfo) error {
	var failureJSON any
	if failure != nil {
		data, err := json.Marshal(failure)
		if err != nil {
			return fmt.Errorf("encode failure info: %w", err)
		}
		failureJSON = string(data)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, failure_json = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(to),
		failureJSON,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("transition job to %s: %w", to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleTransition
	}
	return nil
}

// Cancel flips a non-terminal job to cancelled. It reports whether the
// transition applied.
func (s *Store) Cancel(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?, ?)`,
		string(StatusCancelled),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		string(StatusCompleted),
		string(StatusFailed),
		string(StatusCancelled),
	)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel rows affected: %w", err)
	}
	return affected == 1, nil
}

// IsCancelled reports whether the job has been cancelled. The pipeline
// polls this at stage boundaries.
func (s *Store) IsCancelled(ctx context.Context, id int64) (bool, error) {
	var status string
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT status FROM jobs WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("job %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return false, fmt.Errorf("read job status: %w", err)
	}
	return Status(status) == StatusCancelled, nil
}

// Retry resets a failed job to pending and clears its failure detail.
func (s *Store) Retry(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, failure_json = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusPending),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		string(StatusFailed),
	)
	if err != nil {
		return false, fmt.Errorf("retry job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("retry rows affected: %w", err)
	}
	return affected == 1, nil
}

// List returns jobs filtered by the supplied statuses, oldest first.
// Without a filter every job is returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats aggregates job counts per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health summarizes queue counts for status display.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Due:        stats[StatusPending] + stats[StatusScheduled],
		Processing: stats[StatusProcessing],
		Completed:  stats[StatusCompleted],
		Failed:     stats[StatusFailed],
		Cancelled:  stats[StatusCancelled],
	}
	for _, count := range stats {
		summary.Total += count
	}
	return summary, nil
}

// ClearTerminal deletes completed, failed, and cancelled jobs along
// with their artifacts. Returns the number of jobs removed.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE status IN (?, ?, ?)`,
		string(StatusCompleted),
		string(StatusFailed),
		string(StatusCancelled),
	)
	if err != nil {
		return 0, fmt.Errorf("clear terminal jobs: %w", err)
	}
	return res.RowsAffected()
}

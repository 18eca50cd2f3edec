package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AttachArtifact appends an immutable stage output to a job.
func (s *Store) AttachArtifact(ctx context.Context, jobID int64, kind ArtifactKind, ordinal int, payload any) (*Artifact, error) {
	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (job_id, kind, ordinal, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		jobID,
		string(kind),
		ordinal,
		encoded,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("attach artifact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("artifact insert id: %w", err)
	}
	return &Artifact{ID: id, JobID: jobID, Kind: kind, Ordinal: ordinal, Payload: encoded, CreatedAt: now}, nil
}

// ArtifactsByJob returns every artifact for a job in insertion order.
func (s *Store) ArtifactsByJob(ctx context.Context, jobID int64) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT id, job_id, kind, ordinal, payload, created_at FROM artifacts WHERE job_id = ? ORDER BY id ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

// LatestArtifact returns the most recent artifact of a kind for a job,
// or nil when the stage has not produced one.
func (s *Store) LatestArtifact(ctx context.Context, jobID int64, kind ArtifactKind) (*Artifact, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT id, job_id, kind, ordinal, payload, created_at FROM artifacts
         WHERE job_id = ? AND kind = ? ORDER BY id DESC LIMIT 1`,
		jobID,
		string(kind),
	)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// EpisodeArtifacts returns the ordered episode artifacts for a job.
func (s *Store) EpisodeArtifacts(ctx context.Context, jobID int64) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT id, job_id, kind, ordinal, payload, created_at FROM artifacts
         WHERE job_id = ? AND kind = ? ORDER BY ordinal ASC, id ASC`,
		jobID,
		string(ArtifactEpisode),
	)
	if err != nil {
		return nil, fmt.Errorf("list episode artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

func scanArtifact(row rowScanner) (*Artifact, error) {
	var (
		artifact  Artifact
		createdAt string
	)
	if err := row.Scan(&artifact.ID, &artifact.JobID, (*string)(&artifact.Kind), &artifact.Ordinal, &artifact.Payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse artifact created_at: %w", err)
	}
	artifact.CreatedAt = ts
	return &artifact, nil
}

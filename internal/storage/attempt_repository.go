package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/unlock-remote/device/internal/storage/models"
)

// DefaultAttemptLimit caps List when no limit is given.
const DefaultAttemptLimit = 50

// AttemptRepository provides data access for the unlock journal.
type AttemptRepository struct {
	BaseRepository
}

// NewAttemptRepository creates a new attempt repository.
func NewAttemptRepository(db *DB) *AttemptRepository {
	return &AttemptRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Record inserts a finished attempt, assigning an ID and timestamps when missing.
func (r *AttemptRepository) Record(ctx context.Context, a *models.Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = r.Now()
	}
	if a.FinishedAt.IsZero() {
		a.FinishedAt = r.Now()
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO unlock_attempts (
			id, started_at, finished_at, outcome, status_code, redirected, message
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.StartedAt, a.FinishedAt, string(a.Outcome),
		a.StatusCode, a.Redirected, a.Message,
	)
	if err != nil {
		return fmt.Errorf("inserting attempt: %w", err)
	}
	return nil
}

// GetByID retrieves an attempt, or nil when it does not exist.
func (r *AttemptRepository) GetByID(ctx context.Context, id string) (*models.Attempt, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, outcome, status_code, redirected, message
		FROM unlock_attempts WHERE id = ?
	`, id)

	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying attempt: %w", err)
	}
	return a, nil
}

// List returns the newest attempts first.
func (r *AttemptRepository) List(ctx context.Context, limit int) ([]models.Attempt, error) {
	if limit <= 0 {
		limit = DefaultAttemptLimit
	}

	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, started_at, finished_at, outcome, status_code, redirected, message
		FROM unlock_attempts
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Stats counts attempts by outcome.
func (r *AttemptRepository) Stats(ctx context.Context) (models.AttemptStats, error) {
	var stats models.AttemptStats
	err := r.DB().QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'failure' THEN 1 ELSE 0 END), 0)
		FROM unlock_attempts
	`).Scan(&stats.Total, &stats.Succeeded, &stats.Failed)
	if err != nil {
		return stats, fmt.Errorf("counting attempts: %w", err)
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (*models.Attempt, error) {
	var a models.Attempt
	var outcome string
	if err := s.Scan(&a.ID, &a.StartedAt, &a.FinishedAt, &outcome, &a.StatusCode, &a.Redirected, &a.Message); err != nil {
		return nil, err
	}
	a.Outcome = models.Outcome(outcome)
	return &a, nil
}

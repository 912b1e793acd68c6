package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// runRepository handles database operations for operation run tracking
type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *runRepository {
	return &runRepository{db: db}
}

// CreateRun inserts a new operation run record
func (r *runRepository) CreateRun(ctx context.Context, run *domain.OperationRun) error {
	query := `
		INSERT INTO operation_runs (
			id, store_id, run_date, status, stage,
			model_version, started_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.ID, run.StoreID, run.RunDate, run.Status, run.Stage,
		run.ModelVersion, run.StartedAt, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to create operation run: %w", err)
	}
	return nil
}

// UpdateRun records a status transition
func (r *runRepository) UpdateRun(ctx context.Context, run *domain.OperationRun) error {
	query := `
		UPDATE operation_runs
		SET status = $1, stage = $2, completed_at = $3, error_message = $4
		WHERE id = $5
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.Stage, run.CompletedAt, run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update operation run: %w", err)
	}
	return nil
}

// GetRun retrieves an operation run by ID
func (r *runRepository) GetRun(ctx context.Context, id string) (*domain.OperationRun, error) {
	query := `
		SELECT id, store_id, run_date, status, stage, model_version,
		       started_at, completed_at, error_message
		FROM operation_runs
		WHERE id = $1
	`

	run := &domain.OperationRun{}
	err := r.db.GetContext(ctx, run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.UnknownEntity("run", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation run: %w", err)
	}
	return run, nil
}

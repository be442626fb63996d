package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// creates a new task repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// records a freshly accepted upstream task
func (r *Repository) Create(ctx context.Context, task *Task) (*Task, error) {
	if task.Status == "" {
		task.Status = StatusCreated
	}

	created, err := scanTask(r.db.QueryRow(ctx, queryCreateTask,
		uuid.NewString(),
		task.TaskID,
		task.UserID,
		task.Kind,
		task.Status,
		task.Prompt,
		task.Inputs,
	))

	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return created, nil
}

// finds a task by its upstream id
func (r *Repository) GetByTaskID(ctx context.Context, taskID string) (*Task, error) {
	task, err := scanTask(r.db.QueryRow(ctx, queryGetByTaskID, taskID))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// records the latest observed status and outputs for a task
func (r *Repository) UpdateStatus(ctx context.Context, taskID, status string, outputs []string, errorMessage string) (*Task, error) {
	task, err := scanTask(r.db.QueryRow(ctx, queryUpdateStatus, taskID, status, outputs, errorMessage))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	return task, nil
}

// flips the reverted flag, returning true only for the caller that won.
// The check-and-set keeps usage reverts idempotent per task.
func (r *Repository) MarkReverted(ctx context.Context, taskID string) (bool, error) {
	tag, err := r.db.Exec(ctx, queryMarkReverted, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to mark task reverted: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// lists non-terminal tasks created before the threshold
func (r *Repository) ListStale(ctx context.Context, threshold time.Time) ([]*Task, error) {
	rows, err := r.db.Query(ctx, queryListStale, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale tasks: %w", err)
	}
	defer rows.Close()

	var stale []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale task: %w", err)
		}
		stale = append(stale, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stale tasks: %w", err)
	}

	return stale, nil
}

func scanTask(row pgx.Row) (*Task, error) {
	var task Task

	err := row.Scan(
		&task.ID,
		&task.TaskID,
		&task.UserID,
		&task.Kind,
		&task.Status,
		&task.Prompt,
		&task.Inputs,
		&task.Outputs,
		&task.ErrorMessage,
		&task.Reverted,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return &task, nil
}

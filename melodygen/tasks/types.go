package tasks

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// handles generation task database operations
type Repository struct {
	db *pgxpool.Pool
}

// task lifecycle: created -> processing -> {completed | failed}
const (
	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// generation kinds
const (
	KindMusic = "music"
	KindVideo = "video"
)

var ErrNotFound = errors.New("task not found")

// represents one upstream generation task tracked locally.
// TaskID is the opaque id issued by the upstream API.
type Task struct {
	ID           string         `json:"id"`
	TaskID       string         `json:"task_id"`
	UserID       string         `json:"-"`
	Kind         string         `json:"kind"`
	Status       string         `json:"status"`
	Prompt       string         `json:"prompt"`
	Inputs       map[string]any `json:"inputs,omitempty"`
	Outputs      []string       `json:"outputs,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Reverted     bool           `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// true once the task can no longer change state
func (t *Task) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

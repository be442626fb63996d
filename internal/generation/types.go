package generation

import (
	"context"

	"codeberg.org/melodygen/server/internal/suno"
	"codeberg.org/melodygen/server/internal/wavespeed"
	"codeberg.org/melodygen/server/melodygen/tasks"
)

// one music generation request from a user
type MusicRequest struct {
	Prompt       string
	Style        string
	Title        string
	Instrumental bool
	Model        string
}

// one music video generation request from a user
type VideoRequest struct {
	AudioURL   string
	ImageURL   string
	Prompt     string
	Resolution string
}

// the slice of the task repository the service needs
type TaskRepo interface {
	Create(ctx context.Context, task *tasks.Task) (*tasks.Task, error)
	GetByTaskID(ctx context.Context, taskID string) (*tasks.Task, error)
}

// music generation upstream
type MusicClient interface {
	Generate(ctx context.Context, req suno.GenerateRequest) (string, error)
	Status(ctx context.Context, taskID string) (*suno.TaskStatus, error)
}

// video generation upstream
type VideoClient interface {
	Generate(ctx context.Context, req wavespeed.GenerateRequest) (string, error)
	Status(ctx context.Context, predictionID string) (*wavespeed.PredictionStatus, error)
}

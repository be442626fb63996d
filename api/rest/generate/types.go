package generate

import (
	"context"

	"codeberg.org/melodygen/server/internal/generation"
	"codeberg.org/melodygen/server/melodygen/tasks"
)

// the slice of the generation service the music endpoints need
type Service interface {
	RequestMusic(ctx context.Context, userID string, req generation.MusicRequest) (*tasks.Task, error)
	PollMusic(ctx context.Context, userID, taskID string) (*tasks.Task, error)
}

// request body for POST /generate
type Request struct {
	Prompt       string `json:"prompt" binding:"required"`
	Style        string `json:"style"`
	Title        string `json:"title"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model"`
}

// response for a created or polled music task
type Response struct {
	TaskID       string   `json:"task_id"`
	Status       string   `json:"status"`
	Outputs      []string `json:"outputs,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

func toResponse(task *tasks.Task) Response {
	return Response{
		TaskID:       task.TaskID,
		Status:       task.Status,
		Outputs:      task.Outputs,
		ErrorMessage: task.ErrorMessage,
	}
}

package video

import (
	"context"

	"codeberg.org/melodygen/server/internal/generation"
	"codeberg.org/melodygen/server/melodygen/tasks"
)

// the slice of the generation service the video endpoints need
type Service interface {
	RequestVideo(ctx context.Context, userID string, req generation.VideoRequest) (*tasks.Task, error)
	PollVideo(ctx context.Context, userID, predictionID string) (*tasks.Task, error)
}

// request body for POST /video
type Request struct {
	AudioURL   string `json:"audio_url" binding:"required,url"`
	ImageURL   string `json:"image_url" binding:"omitempty,url"`
	Prompt     string `json:"prompt"`
	Resolution string `json:"resolution"`
}

// response for a created or polled video prediction
type Response struct {
	PredictionID string   `json:"prediction_id"`
	Status       string   `json:"status"`
	Outputs      []string `json:"outputs,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

func toResponse(task *tasks.Task) Response {
	return Response{
		PredictionID: task.TaskID,
		Status:       task.Status,
		Outputs:      task.Outputs,
		ErrorMessage: task.ErrorMessage,
	}
}

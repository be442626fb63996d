package generate

import (
	stderrors "errors"
	"net/http"

	"codeberg.org/melodygen/server/internal/dispatch"
	"codeberg.org/melodygen/server/internal/errors"
	"codeberg.org/melodygen/server/internal/generation"
	"codeberg.org/melodygen/server/internal/quota"
	"codeberg.org/melodygen/server/melodygen/tasks"
	"github.com/gin-gonic/gin"
)

// creates a handler for starting a music generation
func CreateHandler(service Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			errors.Unauthorized(c, "user not authenticated")
			return
		}

		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		task, err := service.RequestMusic(c.Request.Context(), userID, generation.MusicRequest{
			Prompt:       req.Prompt,
			Style:        req.Style,
			Title:        req.Title,
			Instrumental: req.Instrumental,
			Model:        req.Model,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, toResponse(task))
	}
}

// creates a handler for polling a music task
func StatusHandler(service Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			errors.Unauthorized(c, "user not authenticated")
			return
		}

		taskID := c.Param("task_id")
		if taskID == "" {
			errors.BadRequest(c, "task_id is required", nil)
			return
		}

		task, err := service.PollMusic(c.Request.Context(), userID, taskID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, toResponse(task))
	}
}

// maps service errors onto HTTP responses
func respondError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, quota.ErrQuotaExceeded):
		errors.QuotaExceeded(c, "")
	case stderrors.Is(err, tasks.ErrNotFound):
		errors.NotFound(c, "task")
	case stderrors.Is(err, dispatch.ErrUpstreamRejected):
		errors.GenerationRejected(c, err)
	case stderrors.Is(err, dispatch.ErrExhaustedRetries):
		errors.UpstreamUnavailable(c, err)
	default:
		errors.InternalError(c, "failed to process generation request", err)
	}
}

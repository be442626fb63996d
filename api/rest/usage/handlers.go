package usage

import (
	"net/http"

	"codeberg.org/melodygen/server/internal/errors"
	"github.com/gin-gonic/gin"
)

// returns the authenticated user's quota state for the current month
func Handler(reader UsageReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			errors.Unauthorized(c, "user not authenticated")
			return
		}

		q, err := reader.Usage(c.Request.Context(), userID)
		if err != nil {
			errors.InternalError(c, "failed to fetch usage data", err)
			return
		}

		c.JSON(http.StatusOK, Response{
			PlanType:     q.PlanType,
			MonthlyLimit: q.MonthlyLimit,
			CurrentUsage: q.CurrentUsage,
			Remaining:    q.Remaining(),
			ResetDate:    q.ResetDate,
		})
	}
}

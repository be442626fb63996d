package video

import (
	"codeberg.org/melodygen/server/internal/auth"
	"github.com/gin-gonic/gin"
)

// registers music video generation routes. The rate limit runs after
// auth so it buckets by user id rather than by shared client IP.
func RegisterRoutes(router *gin.RouterGroup, service Service, limit gin.HandlerFunc) {
	video := router.Group("/video")
	video.Use(auth.AuthMiddleware(), limit)

	video.POST("", CreateHandler(service))
	video.GET("/:prediction_id", StatusHandler(service))
}

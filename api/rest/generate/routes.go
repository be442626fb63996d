package generate

import (
	"codeberg.org/melodygen/server/internal/auth"
	"github.com/gin-gonic/gin"
)

// registers music generation routes. The rate limit runs after auth so
// it buckets by user id rather than by shared client IP.
func RegisterRoutes(router *gin.RouterGroup, service Service, limit gin.HandlerFunc) {
	generate := router.Group("/generate")
	generate.Use(auth.AuthMiddleware(), limit)

	generate.POST("", CreateHandler(service))
	generate.GET("/:task_id", StatusHandler(service))
}

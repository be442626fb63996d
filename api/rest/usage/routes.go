package usage

import (
	"codeberg.org/melodygen/server/internal/auth"
	"github.com/gin-gonic/gin"
)

// registers the usage route. The rate limit runs after auth so it
// buckets by user id rather than by shared client IP.
func RegisterRoutes(router *gin.RouterGroup, reader UsageReader, limit gin.HandlerFunc) {
	router.GET("/usage", auth.AuthMiddleware(), limit, Handler(reader))
}

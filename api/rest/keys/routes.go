package keys

import (
	"codeberg.org/melodygen/server/internal/auth"
	"github.com/gin-gonic/gin"
)

// registers key pool inspection routes, admin only
func RegisterRoutes(router *gin.RouterGroup, pools map[string]StatsSource) {
	keys := router.Group("/keys")
	keys.Use(auth.AdminAuthMiddleware())

	keys.GET("/stats", StatsHandler(pools))
}

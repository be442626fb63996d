package main

import (
	"fmt"
	"time"

	"codeberg.org/melodygen/server/api/rest/generate"
	"codeberg.org/melodygen/server/api/rest/health"
	"codeberg.org/melodygen/server/api/rest/keys"
	"codeberg.org/melodygen/server/api/rest/usage"
	"codeberg.org/melodygen/server/api/rest/video"
	"codeberg.org/melodygen/server/internal/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) error {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", health.Handler)

	limiter, err := ratelimit.NewRedisLimiter(server.redis, server.config.RateLimit)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	// installed after auth inside each feature group so authenticated
	// traffic buckets by user id; anonymous routes bucket by client IP
	limit := ratelimit.Middleware(limiter)

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", limit, health.PingHandler)

		generate.RegisterRoutes(v1, server.services.Generation, limit)
		video.RegisterRoutes(v1, server.services.Generation, limit)
		usage.RegisterRoutes(v1, server.ledger, limit)

		keys.RegisterRoutes(v1, map[string]keys.StatsSource{
			"music": server.services.MusicPool,
			"video": server.services.VideoPool,
		})
	}

	return nil
}

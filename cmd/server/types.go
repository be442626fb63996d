package main

import (
	"codeberg.org/melodygen/server/internal/config"
	"codeberg.org/melodygen/server/internal/generation"
	"codeberg.org/melodygen/server/internal/keypool"
	"codeberg.org/melodygen/server/internal/quota"
	"codeberg.org/melodygen/server/internal/reconcile"
	"codeberg.org/melodygen/server/melodygen/tasks"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// holds all dependencies and state for the API server
type Server struct {
	db       *pgxpool.Pool
	redis    *redis.Client
	config   *config.Config
	taskRepo *tasks.Repository
	ledger   *quota.Ledger
	services *Services
	sweeper  *reconcile.Sweeper
	router   *gin.Engine
}

// holds the generation service and the key pools behind it
type Services struct {
	Generation *generation.Service
	MusicPool  *keypool.Pool
	VideoPool  *keypool.Pool
}

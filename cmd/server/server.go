package main

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/melodygen/server/internal/config"
	"codeberg.org/melodygen/server/internal/quota"
	"codeberg.org/melodygen/server/internal/reconcile"
	"codeberg.org/melodygen/server/melodygen/tasks"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	// how often the sweeper checks for stuck tasks
	sweepCheckInterval = 5 * time.Minute

	// tasks pending for longer than this are failed and refunded
	taskMaxAge = 30 * time.Minute
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.SupabaseConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// configure connection pool for supabase free tier pooler compatibility
	// free tier has ~10-15 pooler connections, so keep our pool small
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// CRITICAL: use simple protocol for supabase pooler (PgBouncer) compatibility
	// pgBouncer in transaction mode doesn't support prepared statements,
	// which causes connections to hang on subsequent queries
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	redisClient := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	taskRepo := tasks.NewRepository(db)
	ledger := quota.NewLedger(quota.NewPostgresStore(db))
	reconciler := reconcile.New(taskRepo, ledger)

	services := InitializeServices(cfg, taskRepo, ledger, reconciler)

	// sweeper times out tasks whose owners stopped polling
	sweeper := reconcile.NewSweeper(taskRepo, reconciler, sweepCheckInterval, taskMaxAge)

	router := gin.Default()

	server := &Server{
		db:       db,
		redis:    redisClient,
		config:   cfg,
		taskRepo: taskRepo,
		ledger:   ledger,
		services: services,
		sweeper:  sweeper,
		router:   router,
	}

	if err := RegisterRoutes(router, server); err != nil {
		redisClient.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
		db.Close()
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return server, nil
}

package main

import (
	"codeberg.org/melodygen/server/internal/config"
	"codeberg.org/melodygen/server/internal/generation"
	"codeberg.org/melodygen/server/internal/keypool"
	"codeberg.org/melodygen/server/internal/quota"
	"codeberg.org/melodygen/server/internal/reconcile"
	"codeberg.org/melodygen/server/internal/suno"
	"codeberg.org/melodygen/server/internal/wavespeed"
	"codeberg.org/melodygen/server/melodygen/tasks"
)

// creates the key pools, upstream clients and the generation service
func InitializeServices(
	cfg *config.Config,
	taskRepo *tasks.Repository,
	ledger *quota.Ledger,
	reconciler *reconcile.Reconciler,
) *Services {
	musicPool := keypool.New(cfg.MusicAPIKeys, keypool.Options{})
	videoPool := keypool.New(cfg.VideoAPIKeys, keypool.Options{})

	musicClient := suno.NewClient(musicPool, cfg.MusicAPIBaseURL)
	videoClient := wavespeed.NewClient(videoPool, cfg.VideoAPIBaseURL)

	return &Services{
		Generation: generation.NewService(ledger, taskRepo, reconciler, musicClient, videoClient),
		MusicPool:  musicPool,
		VideoPool:  videoPool,
	}
}

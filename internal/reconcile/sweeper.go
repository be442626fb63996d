package reconcile

import (
	"context"
	"time"

	"codeberg.org/melodygen/server/internal/logger"
	"codeberg.org/melodygen/server/melodygen/tasks"
)

// the slice of the task repository the sweeper needs on top of TaskStore
type StaleLister interface {
	ListStale(ctx context.Context, before time.Time) ([]*tasks.Task, error)
}

// fails tasks stuck in a non-terminal state for too long. Polling is
// client-driven, so a task whose owner stopped polling would otherwise
// hold its committed usage forever.
type Sweeper struct {
	lister        StaleLister
	reconciler    *Reconciler
	checkInterval time.Duration
	maxAge        time.Duration
}

// creates a sweeper
func NewSweeper(lister StaleLister, reconciler *Reconciler, checkInterval, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		lister:        lister,
		reconciler:    reconciler,
		checkInterval: checkInterval,
		maxAge:        maxAge,
	}
}

// begins the sweeper background loop
func (s *Sweeper) Start(ctx context.Context) {
	logger.Info("starting stale task sweeper",
		"check_interval", s.checkInterval,
		"max_age", s.maxAge,
	)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stale task sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// finds and fails tasks older than the max age
func (s *Sweeper) sweep(ctx context.Context) {
	threshold := time.Now().Add(-s.maxAge)

	stale, err := s.lister.ListStale(ctx, threshold)
	if err != nil {
		logger.ErrorErr(err, "failed to list stale tasks")
		return
	}

	if len(stale) == 0 {
		return
	}

	logger.Info("found stale tasks to time out", "count", len(stale))

	for _, task := range stale {
		// failing through the reconciler refunds the committed usage
		// under the same once-only guard as a polled failure
		_, err := s.reconciler.Apply(ctx, RemoteStatus{
			TaskID:       task.TaskID,
			Status:       tasks.StatusFailed,
			ErrorMessage: "generation timed out",
		})
		if err != nil {
			logger.ErrorErr(err, "failed to time out stale task",
				"task_id", task.TaskID,
				"user_id", task.UserID,
			)
			continue
		}

		logger.Info("stale task timed out",
			"task_id", task.TaskID,
			"kind", task.Kind,
			"created_at", task.CreatedAt,
		)
	}
}

package reconcile

import (
	"context"
	"fmt"

	"codeberg.org/melodygen/server/internal/logger"
	"codeberg.org/melodygen/server/melodygen/tasks"
)

// one observation of an upstream task, already mapped to local status values
type RemoteStatus struct {
	TaskID       string
	Status       string
	Outputs      []string
	ErrorMessage string
}

// the slice of the task repository the reconciler needs
type TaskStore interface {
	GetByTaskID(ctx context.Context, taskID string) (*tasks.Task, error)
	UpdateStatus(ctx context.Context, taskID, status string, outputs []string, errorMessage string) (*tasks.Task, error)
	MarkReverted(ctx context.Context, taskID string) (bool, error)
}

// the slice of the quota ledger the reconciler needs
type UsageLedger interface {
	RevertUsage(ctx context.Context, userID string) error
}

// keeps local task and quota state consistent with upstream observations.
// Client-driven: each Apply handles exactly one poll result, there is no
// background poll loop here.
type Reconciler struct {
	tasks  TaskStore
	ledger UsageLedger
}

// creates a reconciler
func New(taskStore TaskStore, ledger UsageLedger) *Reconciler {
	return &Reconciler{
		tasks:  taskStore,
		ledger: ledger,
	}
}

// folds one upstream observation into the task record. A failed terminal
// state refunds the user's committed usage, at most once per task. Revert
// failures are logged, never raised - the generation outcome already
// happened and the caller still needs the status.
func (r *Reconciler) Apply(ctx context.Context, remote RemoteStatus) (*tasks.Task, error) {
	task, err := r.tasks.GetByTaskID(ctx, remote.TaskID)
	if err != nil {
		return nil, err
	}

	// terminal states never change again; repeated polls after failure
	// must not trigger a second revert
	if task.Terminal() {
		return task, nil
	}

	switch remote.Status {
	case tasks.StatusCompleted:
		return r.tasks.UpdateStatus(ctx, remote.TaskID, tasks.StatusCompleted, remote.Outputs, "")

	case tasks.StatusFailed:
		updated, err := r.tasks.UpdateStatus(ctx, remote.TaskID, tasks.StatusFailed, remote.Outputs, remote.ErrorMessage)
		if err != nil {
			return nil, err
		}

		r.revertOnce(ctx, updated)

		return updated, nil

	default:
		// created/processing and anything unrecognised: record progress only
		if task.Status == remote.Status {
			return task, nil
		}

		return r.tasks.UpdateStatus(ctx, remote.TaskID, tasks.StatusProcessing, nil, "")
	}
}

// refunds committed usage for a failed task, guarded by the task's
// reverted flag so polling twice after failure decrements only once
func (r *Reconciler) revertOnce(ctx context.Context, task *tasks.Task) {
	won, err := r.tasks.MarkReverted(ctx, task.TaskID)
	if err != nil {
		logger.ErrorErr(err, "failed to flag task as reverted",
			"task_id", task.TaskID,
			"user_id", task.UserID,
		)
		return
	}

	if !won {
		return
	}

	if err := r.ledger.RevertUsage(ctx, task.UserID); err != nil {
		logger.ErrorErr(fmt.Errorf("revert failure: %w", err), "failed to refund usage for failed task",
			"task_id", task.TaskID,
			"user_id", task.UserID,
		)
	}
}

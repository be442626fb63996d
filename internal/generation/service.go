package generation

import (
	"context"
	"fmt"

	"codeberg.org/melodygen/server/internal/logger"
	"codeberg.org/melodygen/server/internal/quota"
	"codeberg.org/melodygen/server/internal/reconcile"
	"codeberg.org/melodygen/server/internal/suno"
	"codeberg.org/melodygen/server/internal/wavespeed"
	"codeberg.org/melodygen/server/melodygen/tasks"
)

// coordinates quota accounting, upstream dispatch and task tracking.
// The ordering contract: usage is committed only after the upstream
// accepted the request and returned a task id.
type Service struct {
	ledger     *quota.Ledger
	repo       TaskRepo
	reconciler *reconcile.Reconciler
	music      MusicClient
	video      VideoClient
}

// creates a generation service
func NewService(
	ledger *quota.Ledger,
	repo TaskRepo,
	reconciler *reconcile.Reconciler,
	music MusicClient,
	video VideoClient,
) *Service {
	return &Service{
		ledger:     ledger,
		repo:       repo,
		reconciler: reconciler,
		music:      music,
		video:      video,
	}
}

// starts a music generation for the user
func (s *Service) RequestMusic(ctx context.Context, userID string, req MusicRequest) (*tasks.Task, error) {
	if _, err := s.ledger.CheckAndReserve(ctx, userID); err != nil {
		return nil, err
	}

	taskID, err := s.music.Generate(ctx, suno.GenerateRequest{
		Prompt:       req.Prompt,
		Style:        req.Style,
		Title:        req.Title,
		Instrumental: req.Instrumental,
		Model:        req.Model,
	})

	// nothing was committed yet, so a rejected or exhausted dispatch
	// costs the user nothing
	if err != nil {
		return nil, err
	}

	return s.recordAccepted(ctx, &tasks.Task{
		TaskID: taskID,
		UserID: userID,
		Kind:   tasks.KindMusic,
		Status: tasks.StatusCreated,
		Prompt: req.Prompt,
		Inputs: map[string]any{
			"style":        req.Style,
			"title":        req.Title,
			"instrumental": req.Instrumental,
			"model":        req.Model,
		},
	})
}

// starts a music video generation for the user
func (s *Service) RequestVideo(ctx context.Context, userID string, req VideoRequest) (*tasks.Task, error) {
	if _, err := s.ledger.CheckAndReserve(ctx, userID); err != nil {
		return nil, err
	}

	predictionID, err := s.video.Generate(ctx, wavespeed.GenerateRequest{
		AudioURL:   req.AudioURL,
		ImageURL:   req.ImageURL,
		Prompt:     req.Prompt,
		Resolution: req.Resolution,
	})

	if err != nil {
		return nil, err
	}

	return s.recordAccepted(ctx, &tasks.Task{
		TaskID: predictionID,
		UserID: userID,
		Kind:   tasks.KindVideo,
		Status: tasks.StatusCreated,
		Prompt: req.Prompt,
		Inputs: map[string]any{
			"audio_url":  req.AudioURL,
			"image_url":  req.ImageURL,
			"resolution": req.Resolution,
		},
	})
}

// polls a music task and reconciles local state with the observation
func (s *Service) PollMusic(ctx context.Context, userID, taskID string) (*tasks.Task, error) {
	task, err := s.ownedTask(ctx, userID, taskID, tasks.KindMusic)
	if err != nil {
		return nil, err
	}

	if task.Terminal() {
		return task, nil
	}

	status, err := s.music.Status(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var outputs []string
	for _, track := range status.Outputs {
		if track.AudioURL != "" {
			outputs = append(outputs, track.AudioURL)
		}
	}

	return s.reconciler.Apply(ctx, reconcile.RemoteStatus{
		TaskID:       taskID,
		Status:       status.Status,
		Outputs:      outputs,
		ErrorMessage: status.ErrorMessage,
	})
}

// polls a video prediction and reconciles local state with the observation
func (s *Service) PollVideo(ctx context.Context, userID, predictionID string) (*tasks.Task, error) {
	task, err := s.ownedTask(ctx, userID, predictionID, tasks.KindVideo)
	if err != nil {
		return nil, err
	}

	if task.Terminal() {
		return task, nil
	}

	status, err := s.video.Status(ctx, predictionID)
	if err != nil {
		return nil, err
	}

	// drop outputs the provider flagged; a fully flagged completion is a failure
	outputs := make([]string, 0, len(status.Outputs))
	flagged := 0
	for i, url := range status.Outputs {
		if i < len(status.NSFWFlags) && status.NSFWFlags[i] {
			flagged++
			continue
		}
		outputs = append(outputs, url)
	}

	remote := reconcile.RemoteStatus{
		TaskID:       predictionID,
		Status:       status.Status,
		Outputs:      outputs,
		ErrorMessage: status.ErrorMessage,
	}

	if status.Status == tasks.StatusCompleted && len(outputs) == 0 && flagged > 0 {
		remote.Status = tasks.StatusFailed
		remote.ErrorMessage = "output rejected by content filter"
	}

	return s.reconciler.Apply(ctx, remote)
}

// stores the accepted task and commits the charge. A commit failure is
// logged, not raised - the upstream task is already running and the
// caller needs its id.
func (s *Service) recordAccepted(ctx context.Context, task *tasks.Task) (*tasks.Task, error) {
	created, err := s.repo.Create(ctx, task)
	if err != nil {
		// without a task record the poll path can never reconcile, so
		// fail without charging rather than charge untrackably
		return nil, fmt.Errorf("upstream accepted task %s but recording failed: %w", task.TaskID, err)
	}

	if err := s.ledger.CommitUsage(ctx, task.UserID); err != nil {
		logger.ErrorErr(err, "failed to commit usage for accepted task",
			"task_id", task.TaskID,
			"user_id", task.UserID,
		)
	}

	return created, nil
}

// loads a task and verifies kind and ownership without leaking existence
func (s *Service) ownedTask(ctx context.Context, userID, taskID, kind string) (*tasks.Task, error) {
	task, err := s.repo.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.UserID != userID || task.Kind != kind {
		return nil, tasks.ErrNotFound
	}

	return task, nil
}

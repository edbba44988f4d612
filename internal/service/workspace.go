package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abdallemo/solveit-engine/internal/domain"
	"github.com/abdallemo/solveit-engine/internal/notify"
	"github.com/abdallemo/solveit-engine/internal/repository"
)

// WorkspaceService manages a solver's draft workspace and the terminal
// act of publishing its solution.
type WorkspaceService struct {
	store    repository.Store
	notifier notify.Notifier
	sweeper  *Sweeper
	now      func() time.Time
}

func NewWorkspaceService(store repository.Store, notifier notify.Notifier, sweeper *Sweeper) *WorkspaceService {
	return &WorkspaceService{store: store, notifier: notifier, sweeper: sweeper, now: time.Now}
}

// AutosaveDraft stores the workspace's draft content. Failures are
// reported to the caller; a missing workspace and a failed save are
// distinct outcomes.
func (s *WorkspaceService) AutosaveDraft(ctx context.Context, taskID, solverID uuid.UUID, content string) (*domain.Workspace, error) {
	ws, err := s.store.GetWorkspaceByTask(ctx, taskID, solverID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateWorkspaceContent(ctx, ws.ID, content); err != nil {
		return nil, fmt.Errorf("autosave draft: %w", err)
	}
	return s.store.GetWorkspace(ctx, ws.ID, solverID)
}

type FileMeta struct {
	FileName string
	FilePath string
	FileSize int64
}

// AttachFile records a draft file's metadata in the solver's workspace.
// The bytes live in external storage; only the reference is owned here.
func (s *WorkspaceService) AttachFile(ctx context.Context, workspaceID, solverID uuid.UUID, meta FileMeta) (*domain.WorkspaceFile, error) {
	if _, err := s.store.GetWorkspace(ctx, workspaceID, solverID); err != nil {
		return nil, err
	}
	f := &domain.WorkspaceFile{
		ID:           uuid.New(),
		WorkspaceID:  workspaceID,
		UploadedByID: solverID,
		FileName:     meta.FileName,
		FilePath:     meta.FilePath,
		FileSize:     meta.FileSize,
		IsDraft:      true,
		UploadedAt:   s.now(),
	}
	if err := s.store.AddWorkspaceFile(ctx, f); err != nil {
		return nil, fmt.Errorf("attach file: %w", err)
	}
	return f, nil
}

// RemoveFile deletes a draft file reference, restricted to the workspace
// owner. The delete rolls back when the file belongs to someone else.
func (s *WorkspaceService) RemoveFile(ctx context.Context, fileID, solverID uuid.UUID) (*domain.WorkspaceFile, error) {
	var removed *domain.WorkspaceFile
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		f, err := tx.DeleteWorkspaceFile(ctx, fileID)
		if err != nil {
			return err
		}
		if _, err := tx.GetWorkspace(ctx, f.WorkspaceID, solverID); err != nil {
			return domain.ErrUnauthorized
		}
		removed = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Progress reports how much of the submission window has elapsed, and
// lazily runs the deadline sweep so a fully consumed window takes effect
// on read. Returns nil when the deadline is not enforceable.
func (s *WorkspaceService) Progress(ctx context.Context, taskID, solverID uuid.UUID) (*domain.Progress, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	ws, err := s.store.GetWorkspaceByTask(ctx, taskID, solverID)
	if err != nil {
		return nil, err
	}
	if task.Deadline.IsZero() {
		return nil, nil
	}

	p := task.Deadline.ProgressAt(ws.CreatedAt, s.now())

	if _, err := s.sweeper.SweepTask(ctx, task); err != nil {
		slog.Error("lazy deadline sweep", "task_id", taskID, "error", err)
	}
	return &p, nil
}

// PublishSolution finalizes the workspace into its one Solution, freezes
// the draft files into it and flips the task to SUBMITTED, all or
// nothing. Publishing is terminal and cannot be retried once it commits.
func (s *WorkspaceService) PublishSolution(ctx context.Context, workspaceID, solverID uuid.UUID, content string) (*domain.Solution, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID, solverID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, ws.TaskID)
	if err != nil {
		return nil, err
	}

	// Enforce the deadline before accepting the submission, so a stale
	// expired assignment cannot be submitted to.
	if _, err := s.sweeper.SweepTask(ctx, task); err != nil {
		slog.Error("pre-publish deadline sweep", "task_id", task.ID, "error", err)
	}

	block, err := s.store.GetBlock(ctx, solverID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("check blocklist: %w", err)
	}
	if block != nil {
		return nil, domain.ErrSubmissionClosed
	}

	task, err = s.store.GetTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	switch task.Status {
	case domain.TaskStatusSubmitted, domain.TaskStatusCompleted:
		return nil, domain.ErrAlreadyFinalized
	case domain.TaskStatusOpen:
		return nil, domain.ErrSubmissionClosed
	}

	solution := &domain.Solution{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		TaskID:      task.ID,
		Content:     content,
		IsFinal:     true,
		CreatedAt:   s.now(),
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateSolution(ctx, solution); err != nil {
			return err
		}
		files, err := tx.ListWorkspaceFiles(ctx, workspaceID)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := tx.AttachSolutionFile(ctx, solution.ID, f.ID); err != nil {
				return err
			}
		}
		if err := tx.MarkWorkspaceFilesFinal(ctx, workspaceID); err != nil {
			return err
		}
		ok, err := tx.SetTaskStatus(ctx, task.ID,
			[]domain.TaskStatus{domain.TaskStatusAssigned, domain.TaskStatusInProgress},
			domain.TaskStatusSubmitted)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("task %s left submittable status", task.ID)
		}
		return nil
	})
	if err != nil {
		// No partial solution survives; the caller gets the generic
		// failure, the cause stays in the log.
		slog.Error("publish solution", "workspace_id", workspaceID, "task_id", task.ID, "error", err)
		return nil, domain.ErrPublishFailed
	}

	notifyUser(ctx, s.store, s.notifier, task.PosterID, "Task submitted",
		fmt.Sprintf("Your task %q has been submitted. Please review it within 7 days.", task.Title))

	slog.Info("solution published", "task_id", task.ID, "solution_id", solution.ID, "solver_id", solverID)
	return solution, nil
}

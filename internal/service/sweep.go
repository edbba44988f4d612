package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/abdallemo/solveit-engine/internal/domain"
	"github.com/abdallemo/solveit-engine/internal/notify"
	"github.com/abdallemo/solveit-engine/internal/repository"
)

// errSweepSuperseded aborts an eviction transaction when the task left an
// enforceable status between the progress check and the write, e.g. a
// publishSolution transaction committed SUBMITTED first. The rollback
// discards the block insert.
var errSweepSuperseded = errors.New("task no longer in an enforceable status")

// Sweeper enforces deadlines: when an assigned task's submission window
// is fully consumed it blocks the solver for the task and returns the
// task to the open marketplace. Runs lazily from progress queries and
// publish attempts, and on a schedule via SweepAll.
type Sweeper struct {
	store    repository.Store
	notifier notify.Notifier
	alerts   *notify.Alerts
	now      func() time.Time
}

func NewSweeper(store repository.Store, notifier notify.Notifier, alerts *notify.Alerts) *Sweeper {
	return &Sweeper{store: store, notifier: notifier, alerts: alerts, now: time.Now}
}

// SweepTask checks one task and evicts its solver if the deadline passed.
// Idempotent: an already-blocked pair is a no-op. Returns whether an
// eviction happened.
func (s *Sweeper) SweepTask(ctx context.Context, task *domain.Task) (bool, error) {
	if !task.ActiveAssignment() {
		return false, nil
	}
	if task.SolverID == nil {
		slog.Warn("active task without solver", "task_id", task.ID, "status", task.Status)
		return false, nil
	}
	if task.Deadline.IsZero() {
		// Unenforceable deadline, not an error.
		slog.Warn("task deadline not enforceable", "task_id", task.ID)
		return false, nil
	}
	solverID := *task.SolverID

	ws, err := s.store.GetWorkspaceByTask(ctx, task.ID, solverID)
	if err != nil {
		if errors.Is(err, domain.ErrWorkspaceNotFound) {
			slog.Warn("assigned task has no workspace", "task_id", task.ID, "solver_id", solverID)
			return false, nil
		}
		return false, err
	}

	// The deadline clock starts at workspace creation, not task creation.
	if !task.Deadline.ProgressAt(ws.CreatedAt, s.now()).Expired() {
		return false, nil
	}

	block, err := s.store.GetBlock(ctx, solverID, task.ID)
	if err != nil {
		return false, err
	}
	if block != nil {
		return false, nil
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		// Block first: if the conditional reopen below loses to a
		// concurrent submit, the rollback takes the block with it.
		if err := tx.Block(ctx, solverID, task.ID, domain.BlockReasonMissedDeadline); err != nil {
			return err
		}
		reopened, err := tx.ReopenTask(ctx, task.ID,
			domain.TaskStatusAssigned, domain.TaskStatusInProgress)
		if err != nil {
			return err
		}
		if !reopened {
			return errSweepSuperseded
		}
		return nil
	})
	if errors.Is(err, errSweepSuperseded) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("evict solver: %w", err)
	}

	slog.Warn("task missed deadline, solver blocked", "task_id", task.ID, "solver_id", solverID)
	notifyUser(ctx, s.store, s.notifier, solverID, "Blocked from a task",
		fmt.Sprintf("You are blocked from task %q: the deadline has passed. You can no longer submit, but your previous work stays accessible.", task.Title))
	notifyUser(ctx, s.store, s.notifier, task.PosterID, "Task reopened",
		fmt.Sprintf("Your task %q missed its deadline and has been returned to the marketplace.", task.Title))
	s.alerts.SolverEvicted(task.ID, solverID)

	return true, nil
}

// SweepAll runs the deadline check over every active assignment. A panic
// while sweeping one task is contained so the rest of the batch proceeds.
func (s *Sweeper) SweepAll(ctx context.Context) error {
	tasks, err := s.store.ListActiveAssignments(ctx)
	if err != nil {
		return fmt.Errorf("list active assignments: %w", err)
	}

	evicted := 0
	for i := range tasks {
		if s.sweepOne(ctx, &tasks[i]) {
			evicted++
		}
	}
	slog.Info("deadline sweep finished", "checked", len(tasks), "evicted", evicted)
	return nil
}

func (s *Sweeper) sweepOne(ctx context.Context, task *domain.Task) (evicted bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in deadline sweep",
				"task_id", task.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	evicted, err := s.SweepTask(ctx, task)
	if err != nil {
		slog.Error("sweep task", "task_id", task.ID, "error", err)
	}
	return evicted
}

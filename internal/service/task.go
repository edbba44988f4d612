package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abdallemo/solveit-engine/internal/config"
	"github.com/abdallemo/solveit-engine/internal/domain"
	"github.com/abdallemo/solveit-engine/internal/gateway"
	"github.com/abdallemo/solveit-engine/internal/notify"
	"github.com/abdallemo/solveit-engine/internal/repository"
)

// TaskService owns the task status field and its legal transitions.
type TaskService struct {
	store    repository.Store
	gateway  gateway.PaymentGateway
	notifier notify.Notifier
	now      func() time.Time
}

func NewTaskService(store repository.Store, gw gateway.PaymentGateway, notifier notify.Notifier) *TaskService {
	return &TaskService{store: store, gateway: gw, notifier: notifier, now: time.Now}
}

type CreateTaskInput struct {
	PosterID    uuid.UUID
	Title       string
	Description string
	Content     string
	CategoryID  *uuid.UUID
	Deadline    string
	Price       decimal.Decimal
}

// Create posts a new OPEN task with its payment held in escrow, and
// clears the poster's saved draft in the same transaction.
func (s *TaskService) Create(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	deadline, err := domain.ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}

	gatewayRef, err := s.gateway.CreateHold(ctx, in.Price, in.PosterID.String())
	if err != nil {
		return nil, fmt.Errorf("hold task payment: %w", err)
	}

	now := s.now()
	payment := &domain.Payment{
		ID:         uuid.New(),
		UserID:     in.PosterID,
		Amount:     in.Price,
		Status:     domain.PaymentStatusHold,
		GatewayRef: gatewayRef,
		CreatedAt:  now,
	}
	task := &domain.Task{
		ID:          uuid.New(),
		PosterID:    in.PosterID,
		CategoryID:  in.CategoryID,
		PaymentID:   &payment.ID,
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Price:       in.Price,
		Deadline:    deadline,
		Status:      domain.TaskStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.CreateTask(ctx, task); err != nil {
			return err
		}
		return tx.DeleteTaskDraft(ctx, in.PosterID)
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	slog.Info("task created", "task_id", task.ID, "poster_id", in.PosterID, "deadline", deadline.String())
	return task, nil
}

// Assign claims an OPEN task for a solver and opens their workspace. The
// claim is conditioned on the solver slot still being empty at write time;
// the losing writer of a race gets ErrUnableToAssign.
func (s *TaskService) Assign(ctx context.Context, taskID, solverID uuid.UUID) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.SolverID != nil {
		return nil, domain.ErrAlreadyAssigned
	}

	block, err := s.store.GetBlock(ctx, solverID, taskID)
	if err != nil {
		return nil, fmt.Errorf("check blocklist: %w", err)
	}
	if block != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSolverBlocked, block.Reason)
	}

	at := s.now()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		claimed, err := tx.ClaimTask(ctx, taskID, solverID, at)
		if err != nil {
			return err
		}
		if !claimed {
			return domain.ErrUnableToAssign
		}
		return tx.CreateWorkspace(ctx, &domain.Workspace{
			ID:        uuid.New(),
			TaskID:    taskID,
			SolverID:  solverID,
			CreatedAt: at,
			UpdatedAt: at,
		})
	})
	if err != nil {
		return nil, err
	}

	task, err = s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, task, solverID, at)
	return task, nil
}

func (s *TaskService) notifyAssigned(ctx context.Context, task *domain.Task, solverID uuid.UUID, at time.Time) {
	solverName := "a solver"
	if solver, err := s.store.GetUser(ctx, solverID); err == nil {
		solverName = solver.Name
	}
	due := task.Deadline.Resolve(at).Format(time.RFC1123)
	notifyUser(ctx, s.store, s.notifier, task.PosterID, "Task picked",
		fmt.Sprintf("Your task %q was picked by %s. You will receive the solution by %s.",
			task.Title, solverName, due))
}

// Reopen returns a task to the open marketplace, clearing its assignment.
func (s *TaskService) Reopen(ctx context.Context, taskID uuid.UUID) error {
	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return err
	}
	if _, err := s.store.ReopenTask(ctx, taskID); err != nil {
		return fmt.Errorf("reopen task: %w", err)
	}
	return nil
}

// AcceptSolution completes a SUBMITTED task on the poster's behalf and
// moves the held payment into the 7-day escrow release window.
func (s *TaskService) AcceptSolution(ctx context.Context, taskID, posterID uuid.UUID) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.PosterID != posterID {
		return domain.ErrUnauthorized
	}
	if task.PaymentID == nil {
		return fmt.Errorf("accept solution: task %s has no payment record", taskID)
	}

	releaseDate := s.now().Add(config.EscrowReleaseDelay)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		ok, err := tx.SetTaskStatus(ctx, taskID,
			[]domain.TaskStatus{domain.TaskStatusSubmitted}, domain.TaskStatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			if task.Status == domain.TaskStatusCompleted {
				return domain.ErrAlreadyFinalized
			}
			return domain.ErrNotSubmitted
		}
		return tx.SetPaymentStatus(ctx, *task.PaymentID, domain.PaymentStatusSucceeded, &releaseDate)
	})
	if err != nil {
		return err
	}

	// Capture confirmation at the gateway is best-effort; the local
	// transition already committed and a retry job reconciles misses.
	if payment, perr := s.store.GetPayment(ctx, *task.PaymentID); perr == nil {
		if gerr := s.gateway.MarkSucceeded(ctx, payment.GatewayRef, releaseDate); gerr != nil {
			slog.Error("gateway capture failed", "payment_id", payment.ID, "error", gerr)
		}
	}

	if task.SolverID != nil {
		notifyUser(ctx, s.store, s.notifier, *task.SolverID, "Solution accepted",
			fmt.Sprintf("Your solution for task %q has been accepted.", task.Title))
	}
	slog.Info("solution accepted", "task_id", taskID, "poster_id", posterID)
	return nil
}

// SaveDraft upserts the poster's single task draft.
func (s *TaskService) SaveDraft(ctx context.Context, d *domain.TaskDraft) (*domain.TaskDraft, error) {
	d.UpdatedAt = s.now()
	if err := s.store.UpsertTaskDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return s.store.GetTaskDraft(ctx, d.PosterID)
}

// LoadDraft returns the poster's draft, or ErrNoDraft when none is saved.
func (s *TaskService) LoadDraft(ctx context.Context, posterID uuid.UUID) (*domain.TaskDraft, error) {
	return s.store.GetTaskDraft(ctx, posterID)
}

// ViewFor builds the role-specific read model for a task: posters see
// solution, payment and dispute state, everyone else gets the solver
// variant scoped to their own workspace and block records.
func (s *TaskService) ViewFor(ctx context.Context, taskID, userID uuid.UUID) (domain.TaskView, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.PosterID == userID {
		view := domain.PosterView{Task: *task}
		if sol, err := s.store.GetSolutionByTask(ctx, taskID); err == nil {
			view.Solution = sol
		}
		if task.PaymentID != nil {
			if payment, err := s.store.GetPayment(ctx, *task.PaymentID); err == nil {
				view.Payment = payment
			}
		}
		if refund, err := s.store.GetRefundByTask(ctx, taskID); err == nil {
			view.Dispute = refund
		} else if !errors.Is(err, domain.ErrRefundNotFound) {
			return nil, err
		}
		return view, nil
	}

	view := domain.SolverView{Task: *task}
	if ws, err := s.store.GetWorkspaceByTask(ctx, taskID, userID); err == nil {
		view.Workspace = ws
		if !task.Deadline.IsZero() {
			p := task.Deadline.ProgressAt(ws.CreatedAt, s.now())
			view.Progress = &p
		}
	} else if !errors.Is(err, domain.ErrWorkspaceNotFound) {
		return nil, err
	}
	block, err := s.store.GetBlock(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	view.Block = block
	return view, nil
}

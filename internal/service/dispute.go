package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdallemo/solveit-engine/internal/config"
	"github.com/abdallemo/solveit-engine/internal/domain"
	"github.com/abdallemo/solveit-engine/internal/gateway"
	"github.com/abdallemo/solveit-engine/internal/notify"
	"github.com/abdallemo/solveit-engine/internal/repository"
)

// DisputeService runs the refund engine: disputes opened by posters
// against submitted work, claimed and ruled on by moderators, and settled
// through the payment gateway.
type DisputeService struct {
	store    repository.Store
	gateway  gateway.PaymentGateway
	notifier notify.Notifier
	alerts   *notify.Alerts
	now      func() time.Time
}

func NewDisputeService(store repository.Store, gw gateway.PaymentGateway, notifier notify.Notifier, alerts *notify.Alerts) *DisputeService {
	return &DisputeService{store: store, gateway: gw, notifier: notifier, alerts: alerts, now: time.Now}
}

// RequestRefund opens a dispute against a submitted task. The solver is
// blocked for the task in the same transaction, so the dispute freezes
// the assignment while moderation runs. One dispute per task, ever.
func (s *DisputeService) RequestRefund(ctx context.Context, taskID, posterID uuid.UUID, reason string) (*domain.Refund, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < config.MinRefundReasonLen {
		return nil, domain.ErrReasonTooShort
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.PosterID != posterID {
		return nil, domain.ErrUnauthorized
	}
	if task.Status != domain.TaskStatusSubmitted {
		return nil, domain.ErrNotSubmitted
	}
	if task.PaymentID == nil {
		return nil, domain.ErrPaymentNotFound
	}
	if task.SolverID == nil {
		return nil, fmt.Errorf("submitted task %s has no solver", taskID)
	}
	solverID := *task.SolverID

	refund := &domain.Refund{
		ID:        uuid.New(),
		PaymentID: *task.PaymentID,
		TaskID:    taskID,
		Reason:    reason,
		Status:    domain.RefundStatusPending,
		CreatedAt: s.now(),
	}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		switch _, err := tx.GetRefundByTask(ctx, taskID); {
		case err == nil:
			return domain.ErrDuplicateDispute
		case !errors.Is(err, domain.ErrRefundNotFound):
			return err
		}
		if err := tx.CreateRefund(ctx, refund); err != nil {
			return err
		}
		return tx.Block(ctx, solverID, taskID, domain.BlockReasonRefund)
	})
	if err != nil {
		return nil, err
	}

	notifyUser(ctx, s.store, s.notifier, solverID, "Refund requested",
		fmt.Sprintf("The poster has opened a dispute on %q. A moderator will review the case.", task.Title))

	moderators, err := s.store.ListModerators(ctx)
	if err != nil {
		slog.Warn("skipping moderator notifications", "error", err)
	}
	for _, m := range moderators {
		notifyUser(ctx, s.store, s.notifier, m.ID, "New dispute awaiting review",
			fmt.Sprintf("A refund was requested on task %q.", task.Title))
	}

	s.alerts.DisputeOpened(task.Title, refund.ID)
	slog.Info("dispute opened", "refund_id", refund.ID, "task_id", taskID, "poster_id", posterID)
	return refund, nil
}

// Claim assigns a dispute to the calling moderator. First writer wins;
// a dispute already claimed by anyone, including the caller, refuses.
func (s *DisputeService) Claim(ctx context.Context, refundID, moderatorID uuid.UUID) (*domain.Refund, error) {
	mod, err := s.store.GetUser(ctx, moderatorID)
	if err != nil {
		return nil, err
	}
	if mod.Role != domain.RoleModerator && mod.Role != domain.RoleAdmin {
		return nil, domain.ErrUnauthorized
	}

	claimed, err := s.store.ClaimRefund(ctx, refundID, moderatorID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if _, err := s.store.GetRefund(ctx, refundID); err != nil {
			return nil, err
		}
		return nil, domain.ErrDisputeAssigned
	}

	slog.Info("dispute claimed", "refund_id", refundID, "moderator_id", moderatorID)
	return s.store.GetRefund(ctx, refundID)
}

// authority loads the dispute and verifies the caller is the moderator it
// was claimed by.
func (s *DisputeService) authority(ctx context.Context, refundID, moderatorID uuid.UUID) (*domain.Refund, error) {
	refund, err := s.store.GetRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if refund.ModeratorID == nil || *refund.ModeratorID != moderatorID {
		return nil, domain.ErrUnauthorized
	}
	return refund, nil
}

// Approve rules the dispute in the poster's favor. No money moves yet:
// the dispute and payment both park in PENDING_USER_ACTION until the
// poster confirms with CompleteRefund.
func (s *DisputeService) Approve(ctx context.Context, refundID, moderatorID uuid.UUID) (*domain.Refund, error) {
	refund, err := s.authority(ctx, refundID, moderatorID)
	if err != nil {
		return nil, err
	}
	if refund.Resolved() {
		return nil, domain.ErrAlreadyResolved
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		ok, err := tx.SetRefundStatus(ctx, refundID,
			[]domain.RefundStatus{domain.RefundStatusProcessing},
			domain.RefundStatusPendingUserAction, nil)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyResolved
		}
		return tx.SetPaymentStatus(ctx, refund.PaymentID, domain.PaymentStatusPendingUserAction, nil)
	})
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, refund.TaskID)
	if err == nil {
		notifyUser(ctx, s.store, s.notifier, task.PosterID, "Refund approved",
			fmt.Sprintf("Your refund request on %q was approved. Confirm to receive the refund.", task.Title))
	}

	slog.Info("dispute approved", "refund_id", refundID, "moderator_id", moderatorID)
	return s.store.GetRefund(ctx, refundID)
}

// Reject rules the dispute in the solver's favor: the task completes, the
// solver is unblocked, and the payout clock restarts with an extension.
// Refuses when the solver has nowhere to receive the payout.
func (s *DisputeService) Reject(ctx context.Context, refundID, moderatorID uuid.UUID) (*domain.Refund, error) {
	refund, err := s.authority(ctx, refundID, moderatorID)
	if err != nil {
		return nil, err
	}
	if refund.Resolved() {
		return nil, domain.ErrAlreadyResolved
	}

	task, err := s.store.GetTask(ctx, refund.TaskID)
	if err != nil {
		return nil, err
	}
	if task.SolverID == nil {
		return nil, fmt.Errorf("disputed task %s has no solver", task.ID)
	}
	solverID := *task.SolverID

	solver, err := s.store.GetUser(ctx, solverID)
	if err != nil {
		return nil, err
	}
	if !solver.HasPayoutDestination() {
		return nil, domain.ErrPayoutDestinationMissing
	}

	now := s.now()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		ok, err := tx.SetRefundStatus(ctx, refundID,
			[]domain.RefundStatus{domain.RefundStatusProcessing},
			domain.RefundStatusRejected, timePtr(now))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyResolved
		}
		release := now.Add(config.PayoutExtension)
		if err := tx.SetPaymentStatus(ctx, refund.PaymentID, domain.PaymentStatusPendingUserAction, &release); err != nil {
			return err
		}
		if err := tx.Unblock(ctx, solverID, task.ID); err != nil {
			return err
		}
		ok, err = tx.SetTaskStatus(ctx, task.ID,
			[]domain.TaskStatus{domain.TaskStatusSubmitted, domain.TaskStatusCompleted},
			domain.TaskStatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("disputed task %s in unexpected status", task.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifyUser(ctx, s.store, s.notifier, task.PosterID, "Refund rejected",
		fmt.Sprintf("Your refund request on %q was rejected after review. The task is complete.", task.Title))
	notifyUser(ctx, s.store, s.notifier, solverID, "Dispute resolved in your favor",
		fmt.Sprintf("The dispute on %q was rejected. Your payout will be released.", task.Title))

	slog.Info("dispute rejected", "refund_id", refundID, "moderator_id", moderatorID)
	return s.store.GetRefund(ctx, refundID)
}

// CompleteRefund is the poster's confirmation of an approved refund. The
// gateway executes the refund inside the transaction, before any local
// write commits: if the money does not move, nothing changes.
func (s *DisputeService) CompleteRefund(ctx context.Context, refundID, posterID uuid.UUID) (*domain.Refund, error) {
	refund, err := s.store.GetRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, refund.TaskID)
	if err != nil {
		return nil, err
	}
	if task.PosterID != posterID {
		return nil, domain.ErrUnauthorized
	}
	switch refund.Status {
	case domain.RefundStatusPendingUserAction:
	case domain.RefundStatusRefunded, domain.RefundStatusRejected:
		return nil, domain.ErrAlreadyResolved
	default:
		return nil, domain.ErrDisputeUnresolved
	}

	payment, err := s.store.GetPayment(ctx, refund.PaymentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := s.gateway.ExecuteRefund(ctx, payment.GatewayRef); err != nil {
			return err
		}
		ok, err := tx.SetRefundStatus(ctx, refundID,
			[]domain.RefundStatus{domain.RefundStatusPendingUserAction},
			domain.RefundStatusRefunded, timePtr(now))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyResolved
		}
		if err := tx.SetPaymentStatus(ctx, refund.PaymentID, domain.PaymentStatusRefunded, nil); err != nil {
			return err
		}
		return tx.SoftDeleteTask(ctx, task.ID)
	})
	if err != nil {
		return nil, err
	}

	notifyUser(ctx, s.store, s.notifier, posterID, "Refund completed",
		fmt.Sprintf("Your payment for %q has been refunded.", task.Title))

	s.alerts.RefundExecuted(refundID, payment.Amount.String())
	slog.Info("refund executed", "refund_id", refundID, "payment_id", payment.ID)
	return s.store.GetRefund(ctx, refundID)
}

// ReopenTask is the poster's alternative to taking an approved refund:
// decline the money, close the dispute as rejected and put the task back
// on the open marketplace with its payment held again.
func (s *DisputeService) ReopenTask(ctx context.Context, refundID, posterID uuid.UUID) (*domain.Task, error) {
	refund, err := s.store.GetRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, refund.TaskID)
	if err != nil {
		return nil, err
	}
	if task.PosterID != posterID {
		return nil, domain.ErrUnauthorized
	}
	switch refund.Status {
	case domain.RefundStatusPendingUserAction:
	case domain.RefundStatusRefunded, domain.RefundStatusRejected:
		return nil, domain.ErrAlreadyResolved
	default:
		return nil, domain.ErrDisputeUnresolved
	}

	now := s.now()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		ok, err := tx.SetRefundStatus(ctx, refundID,
			[]domain.RefundStatus{domain.RefundStatusPendingUserAction},
			domain.RefundStatusRejected, timePtr(now))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyResolved
		}
		reopened, err := tx.ReopenTask(ctx, task.ID, domain.TaskStatusSubmitted)
		if err != nil {
			return err
		}
		if !reopened {
			return fmt.Errorf("disputed task %s in unexpected status", task.ID)
		}
		return tx.SetPaymentStatus(ctx, refund.PaymentID, domain.PaymentStatusHold, nil)
	})
	if err != nil {
		return nil, err
	}

	notifyUser(ctx, s.store, s.notifier, posterID, "Task reopened",
		fmt.Sprintf("%q is back on the marketplace for a new solver.", task.Title))

	slog.Info("disputed task reopened", "refund_id", refundID, "task_id", task.ID)
	return s.store.GetTask(ctx, task.ID)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/abdallemo/solveit-engine/internal/domain"
)

const refundColumns = `id, payment_id, task_id, moderator_id, refund_reason, status, created_at, resolved_at`

func scanRefund(row pgx.Row) (*domain.Refund, error) {
	var (
		r      domain.Refund
		status string
	)
	err := row.Scan(&r.ID, &r.PaymentID, &r.TaskID, &r.ModeratorID,
		&r.Reason, &status, &r.CreatedAt, &r.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRefundNotFound
		}
		return nil, fmt.Errorf("scan refund: %w", err)
	}
	r.Status = domain.RefundStatus(status)
	return &r, nil
}

func (p *Postgres) CreateRefund(ctx context.Context, r *domain.Refund) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO refunds (id, payment_id, task_id, refund_reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.PaymentID, r.TaskID, r.Reason, string(r.Status), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

func (p *Postgres) GetRefund(ctx context.Context, id uuid.UUID) (*domain.Refund, error) {
	return scanRefund(p.db.QueryRow(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id))
}

func (p *Postgres) GetRefundByTask(ctx context.Context, taskID uuid.UUID) (*domain.Refund, error) {
	return scanRefund(p.db.QueryRow(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE task_id = $1`, taskID))
}

// ClaimRefund sets the moderator on an unclaimed dispute. The claim is
// write-once: a second moderator sees zero affected rows.
func (p *Postgres) ClaimRefund(ctx context.Context, refundID, moderatorID uuid.UUID) (bool, error) {
	tag, err := p.db.Exec(ctx, `
		UPDATE refunds SET moderator_id = $2, status = 'PROCESSING'
		WHERE id = $1 AND moderator_id IS NULL`,
		refundID, moderatorID)
	if err != nil {
		return false, fmt.Errorf("claim refund: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) SetRefundStatus(ctx context.Context, id uuid.UUID, from []domain.RefundStatus, to domain.RefundStatus, resolvedAt *time.Time) (bool, error) {
	tag, err := p.db.Exec(ctx, `
		UPDATE refunds SET status = $3, resolved_at = COALESCE($4, resolved_at)
		WHERE id = $1 AND status = ANY($2)`,
		id, statusStrings(from), string(to), resolvedAt)
	if err != nil {
		return false, fmt.Errorf("set refund status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

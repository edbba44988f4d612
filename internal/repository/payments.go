package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/abdallemo/solveit-engine/internal/domain"
)

func (p *Postgres) CreatePayment(ctx context.Context, pay *domain.Payment) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO payments (id, user_id, amount, status, gateway_ref, release_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pay.ID, pay.UserID, pay.Amount.String(), string(pay.Status),
		pay.GatewayRef, pay.ReleaseDate, pay.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (p *Postgres) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var (
		pay    domain.Payment
		amount string
		status string
	)
	err := p.db.QueryRow(ctx, `
		SELECT id, user_id, amount::text, status, gateway_ref, release_date, created_at
		FROM payments WHERE id = $1`, id).
		Scan(&pay.ID, &pay.UserID, &amount, &status, &pay.GatewayRef, &pay.ReleaseDate, &pay.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if pay.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse payment amount: %w", err)
	}
	pay.Status = domain.PaymentStatus(status)
	return &pay, nil
}

func (p *Postgres) SetPaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, releaseDate *time.Time) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE payments SET status = $2, release_date = COALESCE($3, release_date)
		WHERE id = $1`,
		id, string(status), releaseDate)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

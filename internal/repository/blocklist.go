package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/abdallemo/solveit-engine/internal/domain"
)

// GetBlock returns nil, nil when no record exists for the pair.
func (p *Postgres) GetBlock(ctx context.Context, userID, taskID uuid.UUID) (*domain.BlockedSolver, error) {
	var b domain.BlockedSolver
	err := p.db.QueryRow(ctx, `
		SELECT user_id, task_id, reason, created_at
		FROM blocked_solvers WHERE user_id = $1 AND task_id = $2`,
		userID, taskID).
		Scan(&b.UserID, &b.TaskID, &b.Reason, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get block: %w", err)
	}
	return &b, nil
}

// Block is idempotent: blocking an already-blocked pair keeps the first
// record and its reason.
func (p *Postgres) Block(ctx context.Context, userID, taskID uuid.UUID, reason string) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO blocked_solvers (user_id, task_id, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, task_id) DO NOTHING`,
		userID, taskID, reason)
	if err != nil {
		return fmt.Errorf("block solver: %w", err)
	}
	return nil
}

func (p *Postgres) Unblock(ctx context.Context, userID, taskID uuid.UUID) error {
	_, err := p.db.Exec(ctx,
		`DELETE FROM blocked_solvers WHERE user_id = $1 AND task_id = $2`,
		userID, taskID)
	if err != nil {
		return fmt.Errorf("unblock solver: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/abdallemo/solveit-engine/internal/domain"
)

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := p.db.QueryRow(ctx, `
		SELECT id, name, email, role, payout_account_id, created_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &role, &u.PayoutAccountID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (p *Postgres) ListModerators(ctx context.Context) ([]domain.User, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, email, role, payout_account_id, created_at
		FROM users WHERE role = 'MODERATOR'`)
	if err != nil {
		return nil, fmt.Errorf("list moderators: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			u    domain.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &u.PayoutAccountID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = domain.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

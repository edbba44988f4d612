package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/abdallemo/solveit-engine/internal/domain"
)

func (p *Postgres) CreateSolution(ctx context.Context, s *domain.Solution) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO solutions (id, workspace_id, task_id, content, is_final, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.WorkspaceID, s.TaskID, s.Content, s.IsFinal, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert solution: %w", err)
	}
	return nil
}

func (p *Postgres) AttachSolutionFile(ctx context.Context, solutionID, workspaceFileID uuid.UUID) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO solution_files (solution_id, workspace_file_id) VALUES ($1, $2)`,
		solutionID, workspaceFileID)
	if err != nil {
		return fmt.Errorf("attach solution file: %w", err)
	}
	return nil
}

func (p *Postgres) GetSolutionByTask(ctx context.Context, taskID uuid.UUID) (*domain.Solution, error) {
	var s domain.Solution
	err := p.db.QueryRow(ctx, `
		SELECT id, workspace_id, task_id, content, is_final, created_at
		FROM solutions WHERE task_id = $1`, taskID).
		Scan(&s.ID, &s.WorkspaceID, &s.TaskID, &s.Content, &s.IsFinal, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotSubmitted
		}
		return nil, fmt.Errorf("get solution: %w", err)
	}
	return &s, nil
}

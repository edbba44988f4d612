package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/abdallemo/solveit-engine/internal/domain"
)

const workspaceColumns = `id, task_id, solver_id, content, created_at, updated_at`

func scanWorkspace(row pgx.Row) (*domain.Workspace, error) {
	var w domain.Workspace
	err := row.Scan(&w.ID, &w.TaskID, &w.SolverID, &w.Content, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("scan workspace: %w", err)
	}
	return &w, nil
}

func (p *Postgres) CreateWorkspace(ctx context.Context, w *domain.Workspace) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO workspaces (id, task_id, solver_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		w.ID, w.TaskID, w.SolverID, w.Content, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	return nil
}

// GetWorkspace is scoped to the owning solver so one solver cannot reach
// into another solver's workspace.
func (p *Postgres) GetWorkspace(ctx context.Context, workspaceID, solverID uuid.UUID) (*domain.Workspace, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1 AND solver_id = $2`,
		workspaceID, solverID)
	return scanWorkspace(row)
}

func (p *Postgres) GetWorkspaceByTask(ctx context.Context, taskID, solverID uuid.UUID) (*domain.Workspace, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE task_id = $1 AND solver_id = $2`,
		taskID, solverID)
	return scanWorkspace(row)
}

func (p *Postgres) UpdateWorkspaceContent(ctx context.Context, workspaceID uuid.UUID, content string) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE workspaces SET content = $2, updated_at = now() WHERE id = $1`,
		workspaceID, content)
	if err != nil {
		return fmt.Errorf("update workspace content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkspaceNotFound
	}
	return nil
}

func (p *Postgres) AddWorkspaceFile(ctx context.Context, f *domain.WorkspaceFile) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO workspace_files (id, workspace_id, uploaded_by_id, file_name, file_path, file_size, is_draft, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.WorkspaceID, f.UploadedByID, f.FileName, f.FilePath, f.FileSize, f.IsDraft, f.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert workspace file: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteWorkspaceFile(ctx context.Context, fileID uuid.UUID) (*domain.WorkspaceFile, error) {
	var f domain.WorkspaceFile
	err := p.db.QueryRow(ctx, `
		DELETE FROM workspace_files WHERE id = $1
		RETURNING id, workspace_id, uploaded_by_id, file_name, file_path, file_size, is_draft, uploaded_at`,
		fileID).
		Scan(&f.ID, &f.WorkspaceID, &f.UploadedByID, &f.FileName, &f.FilePath, &f.FileSize, &f.IsDraft, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("delete workspace file: %w", err)
	}
	return &f, nil
}

func (p *Postgres) ListWorkspaceFiles(ctx context.Context, workspaceID uuid.UUID) ([]domain.WorkspaceFile, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, workspace_id, uploaded_by_id, file_name, file_path, file_size, is_draft, uploaded_at
		FROM workspace_files WHERE workspace_id = $1 ORDER BY uploaded_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workspace files: %w", err)
	}
	defer rows.Close()

	var files []domain.WorkspaceFile
	for rows.Next() {
		var f domain.WorkspaceFile
		if err := rows.Scan(&f.ID, &f.WorkspaceID, &f.UploadedByID, &f.FileName,
			&f.FilePath, &f.FileSize, &f.IsDraft, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan workspace file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (p *Postgres) MarkWorkspaceFilesFinal(ctx context.Context, workspaceID uuid.UUID) error {
	_, err := p.db.Exec(ctx,
		`UPDATE workspace_files SET is_draft = FALSE WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return fmt.Errorf("mark workspace files final: %w", err)
	}
	return nil
}

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

const taskColumns = `id, poster_id, solver_id, category_id, payment_id, title, description,
	content, price::text, deadline, status, assigned_at, created_at, updated_at, deleted_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t        domain.Task
		price    string
		deadline string
		status   string
	)
	err := row.Scan(&t.ID, &t.PosterID, &t.SolverID, &t.CategoryID, &t.PaymentID,
		&t.Title, &t.Description, &t.Content, &price, &deadline, &status,
		&t.AssignedAt, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse task price: %w", err)
	}
	t.Status = domain.TaskStatus(status)
	if deadline != "" {
		// Tokens are validated at creation; a bad stored value surfaces
		// as an unenforceable deadline, not an error.
		t.Deadline, _ = domain.ParseDeadline(deadline)
	}
	return &t, nil
}

func (p *Postgres) CreateTask(ctx context.Context, t *domain.Task) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO tasks (id, poster_id, category_id, payment_id, title, description,
			content, price, deadline, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		t.ID, t.PosterID, t.CategoryID, t.PaymentID, t.Title, t.Description,
		t.Content, t.Price.String(), t.Deadline.String(), string(t.Status), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (p *Postgres) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanTask(row)
}

// ClaimTask conditionally assigns the task: first writer wins, the loser
// sees zero affected rows.
func (p *Postgres) ClaimTask(ctx context.Context, taskID, solverID uuid.UUID, at time.Time) (bool, error) {
	tag, err := p.db.Exec(ctx, `
		UPDATE tasks
		SET solver_id = $2, status = 'ASSIGNED', assigned_at = $3, updated_at = $3
		WHERE id = $1 AND solver_id IS NULL AND status = 'OPEN' AND deleted_at IS NULL`,
		taskID, solverID, at)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) ReopenTask(ctx context.Context, taskID uuid.UUID, from ...domain.TaskStatus) (bool, error) {
	q := `UPDATE tasks
		SET solver_id = NULL, assigned_at = NULL, status = 'OPEN', updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`
	args := []any{taskID}
	if len(from) > 0 {
		q += ` AND status = ANY($2)`
		args = append(args, statusStrings(from))
	}
	tag, err := p.db.Exec(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("reopen task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) SetTaskStatus(ctx context.Context, taskID uuid.UUID, from []domain.TaskStatus, to domain.TaskStatus) (bool, error) {
	tag, err := p.db.Exec(ctx, `
		UPDATE tasks SET status = $3, updated_at = now()
		WHERE id = $1 AND status = ANY($2) AND deleted_at IS NULL`,
		taskID, statusStrings(from), string(to))
	if err != nil {
		return false, fmt.Errorf("set task status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) SoftDeleteTask(ctx context.Context, taskID uuid.UUID) error {
	_, err := p.db.Exec(ctx,
		`UPDATE tasks SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		taskID)
	if err != nil {
		return fmt.Errorf("soft delete task: %w", err)
	}
	return nil
}

func (p *Postgres) ListActiveAssignments(ctx context.Context) ([]domain.Task, error) {
	rows, err := p.db.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status IN ('ASSIGNED', 'IN_PROGRESS') AND deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (p *Postgres) UpsertTaskDraft(ctx context.Context, d *domain.TaskDraft) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO task_drafts (poster_id, title, description, content, category, price, deadline, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (poster_id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description,
			content = EXCLUDED.content, category = EXCLUDED.category,
			price = EXCLUDED.price, deadline = EXCLUDED.deadline,
			updated_at = EXCLUDED.updated_at`,
		d.PosterID, d.Title, d.Description, d.Content, d.Category,
		d.Price.String(), d.Deadline, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert task draft: %w", err)
	}
	return nil
}

func (p *Postgres) GetTaskDraft(ctx context.Context, posterID uuid.UUID) (*domain.TaskDraft, error) {
	var (
		d     domain.TaskDraft
		price string
	)
	err := p.db.QueryRow(ctx, `
		SELECT poster_id, title, description, content, category, price::text, deadline, updated_at
		FROM task_drafts WHERE poster_id = $1`, posterID).
		Scan(&d.PosterID, &d.Title, &d.Description, &d.Content, &d.Category, &price, &d.Deadline, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoDraft
		}
		return nil, fmt.Errorf("get task draft: %w", err)
	}
	if d.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse draft price: %w", err)
	}
	return &d, nil
}

func (p *Postgres) DeleteTaskDraft(ctx context.Context, posterID uuid.UUID) error {
	_, err := p.db.Exec(ctx, `DELETE FROM task_drafts WHERE poster_id = $1`, posterID)
	if err != nil {
		return fmt.Errorf("delete task draft: %w", err)
	}
	return nil
}

func statusStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

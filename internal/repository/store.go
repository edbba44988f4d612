package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abdallemo/solveit-engine/internal/domain"
)

// Store is the persistence surface the services mutate through. The
// database is the single source of truth; every multi-step transition runs
// inside WithinTx so partial failures roll back together.
//
// Conditional updates (ClaimTask, ClaimRefund, ReopenTask, SetRefundStatus)
// report false when the row was not in the expected state at write time.
// Callers re-read and map that to the matching precondition error.
type Store interface {
	// WithinTx runs fn against a transactional view of the store. Any
	// error from fn rolls the whole transaction back.
	WithinTx(ctx context.Context, fn func(Store) error) error

	// Tasks
	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ClaimTask(ctx context.Context, taskID, solverID uuid.UUID, at time.Time) (bool, error)
	ReopenTask(ctx context.Context, taskID uuid.UUID, from ...domain.TaskStatus) (bool, error)
	SetTaskStatus(ctx context.Context, taskID uuid.UUID, from []domain.TaskStatus, to domain.TaskStatus) (bool, error)
	SoftDeleteTask(ctx context.Context, taskID uuid.UUID) error
	ListActiveAssignments(ctx context.Context) ([]domain.Task, error)

	// Poster task drafts
	UpsertTaskDraft(ctx context.Context, d *domain.TaskDraft) error
	GetTaskDraft(ctx context.Context, posterID uuid.UUID) (*domain.TaskDraft, error)
	DeleteTaskDraft(ctx context.Context, posterID uuid.UUID) error

	// Workspaces
	CreateWorkspace(ctx context.Context, w *domain.Workspace) error
	GetWorkspace(ctx context.Context, workspaceID, solverID uuid.UUID) (*domain.Workspace, error)
	GetWorkspaceByTask(ctx context.Context, taskID, solverID uuid.UUID) (*domain.Workspace, error)
	UpdateWorkspaceContent(ctx context.Context, workspaceID uuid.UUID, content string) error
	AddWorkspaceFile(ctx context.Context, f *domain.WorkspaceFile) error
	DeleteWorkspaceFile(ctx context.Context, fileID uuid.UUID) (*domain.WorkspaceFile, error)
	ListWorkspaceFiles(ctx context.Context, workspaceID uuid.UUID) ([]domain.WorkspaceFile, error)
	MarkWorkspaceFilesFinal(ctx context.Context, workspaceID uuid.UUID) error

	// Solutions
	CreateSolution(ctx context.Context, s *domain.Solution) error
	AttachSolutionFile(ctx context.Context, solutionID, workspaceFileID uuid.UUID) error
	GetSolutionByTask(ctx context.Context, taskID uuid.UUID) (*domain.Solution, error)

	// Payments
	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, releaseDate *time.Time) error

	// Refunds
	CreateRefund(ctx context.Context, r *domain.Refund) error
	GetRefund(ctx context.Context, id uuid.UUID) (*domain.Refund, error)
	GetRefundByTask(ctx context.Context, taskID uuid.UUID) (*domain.Refund, error)
	ClaimRefund(ctx context.Context, refundID, moderatorID uuid.UUID) (bool, error)
	SetRefundStatus(ctx context.Context, id uuid.UUID, from []domain.RefundStatus, to domain.RefundStatus, resolvedAt *time.Time) (bool, error)

	// Blocklist
	GetBlock(ctx context.Context, userID, taskID uuid.UUID) (*domain.BlockedSolver, error)
	Block(ctx context.Context, userID, taskID uuid.UUID, reason string) error
	Unblock(ctx context.Context, userID, taskID uuid.UUID) error

	// Users
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListModerators(ctx context.Context) ([]domain.User, error)
}

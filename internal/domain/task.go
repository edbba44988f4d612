package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "OPEN"
	TaskStatusAssigned   TaskStatus = "ASSIGNED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusSubmitted  TaskStatus = "SUBMITTED"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// Task is a unit of paid work. Invariant: SolverID is set exactly when
// Status is not OPEN; an OPEN task has no solver and no assignment time.
type Task struct {
	ID          uuid.UUID
	PosterID    uuid.UUID
	SolverID    *uuid.UUID
	CategoryID  *uuid.UUID
	PaymentID   *uuid.UUID
	Title       string
	Description string
	Content     string
	Price       decimal.Decimal
	Deadline    Deadline
	Status      TaskStatus
	AssignedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// ActiveAssignment reports whether the task is in a status the deadline
// sweep enforces against.
func (t *Task) ActiveAssignment() bool {
	return t.Status == TaskStatusAssigned || t.Status == TaskStatusInProgress
}

// TaskDraft is a poster's single in-progress task form, upserted on
// autosave and cleared when the task is created.
type TaskDraft struct {
	PosterID    uuid.UUID
	Title       string
	Description string
	Content     string
	Category    string
	Price       decimal.Decimal
	Deadline    string
	UpdatedAt   time.Time
}

type TaskCategory struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

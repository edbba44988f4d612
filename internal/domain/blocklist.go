package domain

import (
	"time"

	"github.com/google/uuid"
)

// Block reasons written by the engine.
const (
	BlockReasonMissedDeadline = "Missed deadline"
	BlockReasonRefund         = "Blocked for refund"
)

// BlockedSolver prevents a solver from being re-assigned to a task and
// from publishing a solution for it. One record per (solver, task) pair.
type BlockedSolver struct {
	UserID    uuid.UUID
	TaskID    uuid.UUID
	Reason    string
	CreatedAt time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Solution is the finalized output of a workspace. At most one exists per
// workspace; publishing is terminal.
type Solution struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	TaskID      uuid.UUID
	Content     string
	IsFinal     bool
	CreatedAt   time.Time
}

// SolutionFile links a frozen workspace file into a published solution.
type SolutionFile struct {
	SolutionID      uuid.UUID
	WorkspaceFileID uuid.UUID
}

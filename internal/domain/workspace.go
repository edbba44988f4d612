package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is a solver's private working area for one assigned task,
// created at assignment time. Its CreatedAt anchors the deadline clock.
type Workspace struct {
	ID        uuid.UUID
	TaskID    uuid.UUID
	SolverID  uuid.UUID
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkspaceFile is the metadata row for a file stored externally. Draft
// files belong to the workspace; once a solution is published they are
// frozen into it.
type WorkspaceFile struct {
	ID           uuid.UUID
	WorkspaceID  uuid.UUID
	UploadedByID uuid.UUID
	FileName     string
	FilePath     string
	FileSize     int64
	IsDraft      bool
	UploadedAt   time.Time
}

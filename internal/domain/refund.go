package domain

import (
	"time"

	"github.com/google/uuid"
)

type RefundStatus string

const (
	RefundStatusPending           RefundStatus = "PENDING"
	RefundStatusProcessing        RefundStatus = "PROCESSING"
	RefundStatusPendingUserAction RefundStatus = "PENDING_USER_ACTION"
	RefundStatusRefunded          RefundStatus = "REFUNDED"
	RefundStatusRejected          RefundStatus = "REJECTED"
	RefundStatusFailed            RefundStatus = "FAILED"
)

// Refund tracks a poster's dispute of a submitted solution. At most one
// exists per task. ModeratorID is write-once: the first moderator to claim
// the dispute keeps it for its lifetime.
type Refund struct {
	ID          uuid.UUID
	PaymentID   uuid.UUID
	TaskID      uuid.UUID
	ModeratorID *uuid.UUID
	Reason      string
	Status      RefundStatus
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// Resolved reports whether the dispute reached a terminal state.
func (r *Refund) Resolved() bool {
	return r.Status == RefundStatusRefunded || r.Status == RefundStatusRejected
}

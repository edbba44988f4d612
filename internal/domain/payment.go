package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusHold              PaymentStatus = "HOLD"
	PaymentStatusPendingUserAction PaymentStatus = "PENDING_USER_ACTION"
	PaymentStatusSucceeded         PaymentStatus = "SUCCEEDED"
	PaymentStatusReleased          PaymentStatus = "RELEASED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusCanceled          PaymentStatus = "CANCELED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
)

// Payment is the local mirror of one gateway charge. The gateway owns the
// actual ledger; this record only tracks where the money stands relative
// to the task lifecycle. Payments outlive task deletion for audit.
type Payment struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Status      PaymentStatus
	GatewayRef  string
	ReleaseDate *time.Time
	CreatedAt   time.Time
}

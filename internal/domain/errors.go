package domain

import "errors"

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrRefundNotFound    = errors.New("refund request not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrFileNotFound      = errors.New("workspace file not found")
	ErrNoDraft           = errors.New("no draft saved")

	ErrAlreadyAssigned = errors.New("task already assigned to a solver")
	ErrUnableToAssign  = errors.New("unable to assign task")
	ErrSolverBlocked   = errors.New("solver is blocked from this task")

	ErrInvalidDeadline = errors.New("invalid deadline format")

	ErrAlreadyFinalized  = errors.New("solution already finalized")
	ErrSubmissionClosed  = errors.New("submission window has closed")
	ErrPublishFailed     = errors.New("unable to publish solution")
	ErrNotSubmitted      = errors.New("task has no submitted solution")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrReasonTooShort    = errors.New("refund reason too short")
	ErrDuplicateDispute  = errors.New("refund request already exists for this task")
	ErrDisputeAssigned   = errors.New("dispute already claimed by a moderator")
	ErrDisputeUnresolved = errors.New("dispute awaits a moderator decision")
	ErrAlreadyResolved   = errors.New("dispute already resolved")

	ErrPayoutDestinationMissing = errors.New("solver has no payout destination")
	ErrPaymentGateway           = errors.New("payment gateway failure")
)

package config

import "time"

const (
	// Escrow window after a poster accepts a solution
	EscrowReleaseDelay = 7 * 24 * time.Hour

	// Payout release extension applied when a dispute is rejected
	PayoutExtension = 7 * 24 * time.Hour

	// Minimum length of a refund request reason
	MinRefundReasonLen = 10

	// Gateway request timeout
	GatewayTimeout = 30 * time.Second

	// Notification publish timeout
	NotifyTimeout = 10 * time.Second
)

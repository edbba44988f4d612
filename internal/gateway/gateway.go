// Package gateway wraps the payment processor. The engine only asks for
// the four effects below and mirrors the outcomes into its local payment
// records; the processor owns the actual ledger.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentGateway interface {
	// CreateHold places the poster's funds in escrow and returns the
	// gateway's reference for the hold.
	CreateHold(ctx context.Context, amount decimal.Decimal, payerRef string) (string, error)

	// MarkSucceeded confirms the charge and schedules the payout release.
	MarkSucceeded(ctx context.Context, paymentRef string, releaseDate time.Time) error

	// ExecuteRefund returns the held funds to the payer.
	ExecuteRefund(ctx context.Context, paymentRef string) error

	// TransferToPayee moves released funds to the payee's destination.
	TransferToPayee(ctx context.Context, payeeRef string, amount decimal.Decimal) error
}

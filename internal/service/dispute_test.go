package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdallemo/solveit-engine/internal/config"
	"github.com/abdallemo/solveit-engine/internal/domain"
)

func TestDisputeService_RequestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)

	assert.Equal(t, domain.RefundStatusPending, refund.Status)
	assert.Nil(t, refund.ModeratorID)

	// Opening a dispute freezes the solver out of the task.
	block, err := f.store.GetBlock(ctx, f.solver.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, domain.BlockReasonRefund, block.Reason)

	assert.True(t, f.notifier.sentTo(f.solver.ID, "Refund requested"))
	assert.True(t, f.notifier.sentTo(f.moderator.ID, "New dispute awaiting review"))
}

func TestDisputeService_RequestRefund_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")

	_, err := f.disputes.RequestRefund(ctx, task.ID, f.poster.ID, "bad")
	assert.ErrorIs(t, err, domain.ErrReasonTooShort)

	_, err = f.disputes.RequestRefund(ctx, task.ID, f.poster.ID, "   padded out with spaces   ")
	assert.ErrorIs(t, err, domain.ErrNotSubmitted)

	f.submitTask(t, task.ID)

	_, err = f.disputes.RequestRefund(ctx, task.ID, f.solver.ID, "not my task to dispute")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.disputes.RequestRefund(ctx, task.ID, f.poster.ID, "the work does not run at all")
	require.NoError(t, err)

	_, err = f.disputes.RequestRefund(ctx, task.ID, f.poster.ID, "asking twice for good measure")
	assert.ErrorIs(t, err, domain.ErrDuplicateDispute)
}

func TestDisputeService_Claim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)

	claimed, err := f.disputes.Claim(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusProcessing, claimed.Status)
	require.NotNil(t, claimed.ModeratorID)
	assert.Equal(t, f.moderator.ID, *claimed.ModeratorID)

	// The claim is write-once, even for the holder.
	_, err = f.disputes.Claim(ctx, refund.ID, f.moderator.ID)
	assert.ErrorIs(t, err, domain.ErrDisputeAssigned)
}

func TestDisputeService_Claim_RequiresModerator(t *testing.T) {
	f := newFixture(t)

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)

	_, err := f.disputes.Claim(context.Background(), refund.ID, f.poster.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// Concurrent moderators racing for one dispute: exactly one claim lands.
func TestDisputeService_Claim_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)

	const racers = 8
	mods := make([]uuid.UUID, racers)
	for i := range mods {
		m := domain.User{ID: uuid.New(), Name: "Mod", Email: "m@example.com", Role: domain.RoleModerator}
		f.store.SeedUser(m)
		mods[i] = m.ID
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, modID := range mods {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.disputes.Claim(ctx, refund.ID, id)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrDisputeAssigned)
		}(modID)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestDisputeService_Approve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)
	_, err := f.disputes.Claim(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)

	approved, err := f.disputes.Approve(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusPendingUserAction, approved.Status)

	payment, err := f.store.GetPayment(ctx, refund.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPendingUserAction, payment.Status)

	assert.True(t, f.notifier.sentTo(f.poster.ID, "Refund approved"))
}

func TestDisputeService_Approve_OnlyClaimHolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)

	// Unclaimed: nobody holds the authority to rule.
	_, err := f.disputes.Approve(ctx, refund.ID, f.moderator.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	other := domain.User{ID: uuid.New(), Name: "Other", Email: "o@example.com", Role: domain.RoleModerator}
	f.store.SeedUser(other)
	_, err = f.disputes.Claim(ctx, refund.ID, other.ID)
	require.NoError(t, err)

	_, err = f.disputes.Approve(ctx, refund.ID, f.moderator.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDisputeService_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)
	_, err := f.disputes.Claim(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)

	rejected, err := f.disputes.Reject(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusRejected, rejected.Status)
	require.NotNil(t, rejected.ResolvedAt)

	// The solver wins: task completes, the block lifts, the payout clock
	// restarts with the extension.
	assert.Equal(t, domain.TaskStatusCompleted, f.taskStatus(t, task.ID))
	block, err := f.store.GetBlock(ctx, f.solver.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, block)

	payment, err := f.store.GetPayment(ctx, refund.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPendingUserAction, payment.Status)
	require.NotNil(t, payment.ReleaseDate)
	assert.Equal(t, f.clock.Now().Add(config.PayoutExtension), *payment.ReleaseDate)

	assert.True(t, f.notifier.sentTo(f.poster.ID, "Refund rejected"))
	assert.True(t, f.notifier.sentTo(f.solver.ID, "Dispute resolved in your favor"))

	// Terminal: no second ruling.
	_, err = f.disputes.Reject(ctx, refund.ID, f.moderator.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestDisputeService_Reject_RequiresPayoutDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Reseed the solver without a payout destination.
	f.solver.PayoutAccountID = ""
	f.store.SeedUser(f.solver)

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)
	_, err := f.disputes.Claim(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)

	_, err = f.disputes.Reject(ctx, refund.ID, f.moderator.ID)
	assert.ErrorIs(t, err, domain.ErrPayoutDestinationMissing)

	// Nothing moved.
	current, err := f.store.GetRefund(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusProcessing, current.Status)
	assert.Equal(t, domain.TaskStatusSubmitted, f.taskStatus(t, task.ID))
}

func TestDisputeService_CompleteRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)
	_, err := f.disputes.Claim(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)
	_, err = f.disputes.Approve(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)

	completed, err := f.disputes.CompleteRefund(ctx, refund.ID, f.poster.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusRefunded, completed.Status)
	require.NotNil(t, completed.ResolvedAt)

	payment, err := f.store.GetPayment(ctx, refund.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, 1, f.gw.refundCount())

	// The refunded task leaves the marketplace; the payment record stays.
	_, err = f.store.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestDisputeService_CompleteRefund_GatewayFailureChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)
	_, err := f.disputes.Claim(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)
	_, err = f.disputes.Approve(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)

	f.gw.failRefund = true
	_, err = f.disputes.CompleteRefund(ctx, refund.ID, f.poster.ID)
	require.Error(t, err)

	current, err := f.store.GetRefund(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusPendingUserAction, current.Status)
	payment, err := f.store.GetPayment(ctx, refund.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPendingUserAction, payment.Status)
	assert.Equal(t, domain.TaskStatusSubmitted, f.taskStatus(t, task.ID))

	// Retry once the gateway recovers.
	f.gw.failRefund = false
	completed, err := f.disputes.CompleteRefund(ctx, refund.ID, f.poster.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusRefunded, completed.Status)
}

func TestDisputeService_CompleteRefund_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)

	// Not ruled on yet.
	_, err := f.disputes.CompleteRefund(ctx, refund.ID, f.poster.ID)
	assert.ErrorIs(t, err, domain.ErrDisputeUnresolved)

	_, err = f.disputes.Claim(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)
	_, err = f.disputes.Approve(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)

	// Only the poster can confirm.
	_, err = f.disputes.CompleteRefund(ctx, refund.ID, f.solver.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.disputes.CompleteRefund(ctx, refund.ID, f.poster.ID)
	require.NoError(t, err)
	_, err = f.disputes.CompleteRefund(ctx, refund.ID, f.poster.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestDisputeService_ReopenTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	refund := f.openDispute(t, task.ID)
	_, err := f.disputes.Claim(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)
	_, err = f.disputes.Approve(ctx, refund.ID, f.moderator.ID)
	require.NoError(t, err)

	reopened, err := f.disputes.ReopenTask(ctx, refund.ID, f.poster.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusOpen, reopened.Status)
	assert.Nil(t, reopened.SolverID)

	// Declining the refund closes the dispute and re-holds the payment.
	current, err := f.store.GetRefund(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusRejected, current.Status)
	payment, err := f.store.GetPayment(ctx, refund.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusHold, payment.Status)
	assert.Equal(t, 0, f.gw.refundCount())
}

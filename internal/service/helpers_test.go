package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/abdallemo/solveit-engine/internal/domain"
	"github.com/abdallemo/solveit-engine/internal/notify"
	"github.com/abdallemo/solveit-engine/internal/repository/memory"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeGateway records calls and can be told to fail a specific effect.
type fakeGateway struct {
	mu         sync.Mutex
	holds      []string
	captures   []string
	refunds    []string
	transfers  []string
	failHold   bool
	failRefund bool
}

func (g *fakeGateway) CreateHold(_ context.Context, amount decimal.Decimal, payerRef string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failHold {
		return "", errors.New("gateway: hold declined")
	}
	ref := "hold-" + uuid.NewString()
	g.holds = append(g.holds, ref)
	return ref, nil
}

func (g *fakeGateway) MarkSucceeded(_ context.Context, paymentRef string, _ time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captures = append(g.captures, paymentRef)
	return nil
}

func (g *fakeGateway) ExecuteRefund(_ context.Context, paymentRef string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRefund {
		return errors.New("gateway: refund declined")
	}
	g.refunds = append(g.refunds, paymentRef)
	return nil
}

func (g *fakeGateway) TransferToPayee(_ context.Context, payeeRef string, _ decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transfers = append(g.transfers, payeeRef)
	return nil
}

func (g *fakeGateway) refundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds)
}

// captureNotifier collects every emitted event.
type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *captureNotifier) Notify(_ context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *captureNotifier) sentTo(audience uuid.UUID, subject string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.Audience == audience && e.Subject == subject {
			return true
		}
	}
	return false
}

type fixture struct {
	store      *memory.Store
	gw         *fakeGateway
	notifier   *captureNotifier
	clock      *fakeClock
	tasks      *TaskService
	workspaces *WorkspaceService
	disputes   *DisputeService
	sweeper    *Sweeper

	poster    domain.User
	solver    domain.User
	moderator domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewStore(),
		gw:       &fakeGateway{},
		notifier: &captureNotifier{},
		clock:    newFakeClock(),
	}

	f.poster = domain.User{ID: uuid.New(), Name: "Poster", Email: "poster@example.com", Role: domain.RolePoster}
	f.solver = domain.User{ID: uuid.New(), Name: "Solver", Email: "solver@example.com", Role: domain.RoleSolver, PayoutAccountID: "acct-solver"}
	f.moderator = domain.User{ID: uuid.New(), Name: "Mod", Email: "mod@example.com", Role: domain.RoleModerator}
	f.store.SeedUser(f.poster)
	f.store.SeedUser(f.solver)
	f.store.SeedUser(f.moderator)

	f.sweeper = NewSweeper(f.store, f.notifier, nil)
	f.sweeper.now = f.clock.Now

	f.tasks = NewTaskService(f.store, f.gw, f.notifier)
	f.tasks.now = f.clock.Now

	f.workspaces = NewWorkspaceService(f.store, f.notifier, f.sweeper)
	f.workspaces.now = f.clock.Now

	f.disputes = NewDisputeService(f.store, f.gw, f.notifier, nil)
	f.disputes.now = f.clock.Now

	return f
}

// createTask posts a task with the given deadline token.
func (f *fixture) createTask(t *testing.T, deadline string) *domain.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), CreateTaskInput{
		PosterID:    f.poster.ID,
		Title:       "Fix the flaky importer",
		Description: "It drops rows under load",
		Deadline:    deadline,
		Price:       decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	return task
}

// assignTask claims the task for the fixture solver.
func (f *fixture) assignTask(t *testing.T, taskID uuid.UUID) *domain.Task {
	t.Helper()
	task, err := f.tasks.Assign(context.Background(), taskID, f.solver.ID)
	require.NoError(t, err)
	return task
}

// submitTask takes a task through assignment and publishing.
func (f *fixture) submitTask(t *testing.T, taskID uuid.UUID) *domain.Solution {
	t.Helper()
	f.assignTask(t, taskID)
	ws, err := f.store.GetWorkspaceByTask(context.Background(), taskID, f.solver.ID)
	require.NoError(t, err)
	sol, err := f.workspaces.PublishSolution(context.Background(), ws.ID, f.solver.ID, "the finished work")
	require.NoError(t, err)
	return sol
}

// openDispute submits the task and has the poster request a refund.
func (f *fixture) openDispute(t *testing.T, taskID uuid.UUID) *domain.Refund {
	t.Helper()
	f.submitTask(t, taskID)
	refund, err := f.disputes.RequestRefund(context.Background(), taskID, f.poster.ID, "the work does not run at all")
	require.NoError(t, err)
	return refund
}

func (f *fixture) taskStatus(t *testing.T, taskID uuid.UUID) domain.TaskStatus {
	t.Helper()
	task, err := f.store.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	return task.Status
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdallemo/solveit-engine/internal/domain"
)

func TestWorkspaceService_AutosaveDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	f.assignTask(t, task.ID)

	ws, err := f.workspaces.AutosaveDraft(ctx, task.ID, f.solver.ID, "work in progress")
	require.NoError(t, err)
	assert.Equal(t, "work in progress", ws.Content)

	// Only the workspace owner can write to it.
	_, err = f.workspaces.AutosaveDraft(ctx, task.ID, f.poster.ID, "not mine")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func TestWorkspaceService_Files(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	f.assignTask(t, task.ID)
	ws, err := f.store.GetWorkspaceByTask(ctx, task.ID, f.solver.ID)
	require.NoError(t, err)

	file, err := f.workspaces.AttachFile(ctx, ws.ID, f.solver.ID, FileMeta{
		FileName: "report.pdf",
		FilePath: "uploads/report.pdf",
		FileSize: 1024,
	})
	require.NoError(t, err)
	assert.True(t, file.IsDraft)

	files, err := f.store.ListWorkspaceFiles(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	// A stranger cannot remove someone else's file; the delete rolls back.
	_, err = f.workspaces.RemoveFile(ctx, file.ID, f.poster.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	files, err = f.store.ListWorkspaceFiles(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	removed, err := f.workspaces.RemoveFile(ctx, file.ID, f.solver.ID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, removed.ID)
	files, err = f.store.ListWorkspaceFiles(ctx, ws.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestWorkspaceService_Progress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	f.assignTask(t, task.ID)

	f.clock.Advance(6 * time.Hour)
	p, err := f.workspaces.Progress(ctx, task.ID, f.solver.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, 25, p.Percentage, 0.1)
	assert.False(t, p.Expired())
}

func TestWorkspaceService_Progress_LazySweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	f.assignTask(t, task.ID)

	f.clock.Advance(25 * time.Hour)
	p, err := f.workspaces.Progress(ctx, task.ID, f.solver.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, 100, p.Percentage, 0.01)

	// Reading a fully consumed window evicts the solver.
	assert.Equal(t, domain.TaskStatusOpen, f.taskStatus(t, task.ID))
	assert.Equal(t, 1, f.store.BlockCount(task.ID))
}

func TestWorkspaceService_PublishSolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	f.assignTask(t, task.ID)
	ws, err := f.store.GetWorkspaceByTask(ctx, task.ID, f.solver.ID)
	require.NoError(t, err)

	_, err = f.workspaces.AttachFile(ctx, ws.ID, f.solver.ID, FileMeta{FileName: "answer.zip", FilePath: "uploads/answer.zip", FileSize: 2048})
	require.NoError(t, err)

	sol, err := f.workspaces.PublishSolution(ctx, ws.ID, f.solver.ID, "final answer")
	require.NoError(t, err)
	assert.True(t, sol.IsFinal)
	assert.Equal(t, task.ID, sol.TaskID)
	assert.Equal(t, domain.TaskStatusSubmitted, f.taskStatus(t, task.ID))

	// Draft files are frozen into the solution.
	files, err := f.store.ListWorkspaceFiles(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.False(t, files[0].IsDraft)

	assert.True(t, f.notifier.sentTo(f.poster.ID, "Task submitted"))
}

func TestWorkspaceService_PublishSolution_Terminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	f.submitTask(t, task.ID)

	ws, err := f.store.GetWorkspaceByTask(ctx, task.ID, f.solver.ID)
	require.NoError(t, err)
	_, err = f.workspaces.PublishSolution(ctx, ws.ID, f.solver.ID, "again")
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	assert.Equal(t, 1, f.store.SolutionCount(task.ID))
}

func TestWorkspaceService_PublishSolution_WrongSolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	f.assignTask(t, task.ID)
	ws, err := f.store.GetWorkspaceByTask(ctx, task.ID, f.solver.ID)
	require.NoError(t, err)

	intruder := domain.User{ID: uuid.New(), Name: "Intruder", Email: "x@example.com", Role: domain.RoleSolver}
	f.store.SeedUser(intruder)

	_, err = f.workspaces.PublishSolution(ctx, ws.ID, intruder.ID, "stolen")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func TestWorkspaceService_PublishSolution_BlockedSolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "24h")
	f.assignTask(t, task.ID)
	ws, err := f.store.GetWorkspaceByTask(ctx, task.ID, f.solver.ID)
	require.NoError(t, err)

	// The window runs out before the publish lands.
	f.clock.Advance(25 * time.Hour)

	_, err = f.workspaces.PublishSolution(ctx, ws.ID, f.solver.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrSubmissionClosed)
	assert.Equal(t, domain.TaskStatusOpen, f.taskStatus(t, task.ID))
	assert.Equal(t, 0, f.store.SolutionCount(task.ID))
}

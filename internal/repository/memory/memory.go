// Package memory provides an in-memory Store with the same conditional
// update semantics as the Postgres implementation. It backs the service
// tests, letting concurrency properties run as real goroutine races
// without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abdallemo/solveit-engine/internal/domain"
	"github.com/abdallemo/solveit-engine/internal/repository"
)

type blockKey struct {
	UserID uuid.UUID
	TaskID uuid.UUID
}

type state struct {
	tasks         map[uuid.UUID]domain.Task
	drafts        map[uuid.UUID]domain.TaskDraft
	workspaces    map[uuid.UUID]domain.Workspace
	files         map[uuid.UUID]domain.WorkspaceFile
	solutions     map[uuid.UUID]domain.Solution
	solutionFiles []domain.SolutionFile
	payments      map[uuid.UUID]domain.Payment
	refunds       map[uuid.UUID]domain.Refund
	blocks        map[blockKey]domain.BlockedSolver
	users         map[uuid.UUID]domain.User
}

func newState() *state {
	return &state{
		tasks:      make(map[uuid.UUID]domain.Task),
		drafts:     make(map[uuid.UUID]domain.TaskDraft),
		workspaces: make(map[uuid.UUID]domain.Workspace),
		files:      make(map[uuid.UUID]domain.WorkspaceFile),
		solutions:  make(map[uuid.UUID]domain.Solution),
		payments:   make(map[uuid.UUID]domain.Payment),
		refunds:    make(map[uuid.UUID]domain.Refund),
		blocks:     make(map[blockKey]domain.BlockedSolver),
		users:      make(map[uuid.UUID]domain.User),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.drafts {
		c.drafts[k] = v
	}
	for k, v := range s.workspaces {
		c.workspaces[k] = v
	}
	for k, v := range s.files {
		c.files[k] = v
	}
	for k, v := range s.solutions {
		c.solutions[k] = v
	}
	c.solutionFiles = append(c.solutionFiles, s.solutionFiles...)
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.refunds {
		c.refunds[k] = v
	}
	for k, v := range s.blocks {
		c.blocks[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// Store implements repository.Store in memory. A single mutex serializes
// transactions, standing in for the database's isolation.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(_ context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

// SeedUser registers a user record for lookups and role checks.
func (s *Store) SeedUser(u domain.User) {
	defer s.lock()()
	s.st.users[u.ID] = u
}

// Tasks

func (s *Store) CreateTask(_ context.Context, t *domain.Task) error {
	defer s.lock()()
	s.st.tasks[t.ID] = *t
	return nil
}

func (s *Store) GetTask(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	defer s.lock()()
	t, ok := s.st.tasks[id]
	if !ok || t.DeletedAt != nil {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (s *Store) ClaimTask(_ context.Context, taskID, solverID uuid.UUID, at time.Time) (bool, error) {
	defer s.lock()()
	t, ok := s.st.tasks[taskID]
	if !ok || t.DeletedAt != nil || t.SolverID != nil || t.Status != domain.TaskStatusOpen {
		return false, nil
	}
	solver := solverID
	assigned := at
	t.SolverID = &solver
	t.AssignedAt = &assigned
	t.Status = domain.TaskStatusAssigned
	t.UpdatedAt = at
	s.st.tasks[taskID] = t
	return true, nil
}

func (s *Store) ReopenTask(_ context.Context, taskID uuid.UUID, from ...domain.TaskStatus) (bool, error) {
	defer s.lock()()
	t, ok := s.st.tasks[taskID]
	if !ok || t.DeletedAt != nil {
		return false, nil
	}
	if len(from) > 0 && !statusIn(t.Status, from) {
		return false, nil
	}
	t.SolverID = nil
	t.AssignedAt = nil
	t.Status = domain.TaskStatusOpen
	t.UpdatedAt = time.Now()
	s.st.tasks[taskID] = t
	return true, nil
}

func (s *Store) SetTaskStatus(_ context.Context, taskID uuid.UUID, from []domain.TaskStatus, to domain.TaskStatus) (bool, error) {
	defer s.lock()()
	t, ok := s.st.tasks[taskID]
	if !ok || t.DeletedAt != nil || !statusIn(t.Status, from) {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	s.st.tasks[taskID] = t
	return true, nil
}

func (s *Store) SoftDeleteTask(_ context.Context, taskID uuid.UUID) error {
	defer s.lock()()
	t, ok := s.st.tasks[taskID]
	if !ok || t.DeletedAt != nil {
		return nil
	}
	now := time.Now()
	t.DeletedAt = &now
	s.st.tasks[taskID] = t
	return nil
}

func (s *Store) ListActiveAssignments(_ context.Context) ([]domain.Task, error) {
	defer s.lock()()
	var tasks []domain.Task
	for _, t := range s.st.tasks {
		if t.DeletedAt == nil && t.ActiveAssignment() {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// Poster task drafts

func (s *Store) UpsertTaskDraft(_ context.Context, d *domain.TaskDraft) error {
	defer s.lock()()
	s.st.drafts[d.PosterID] = *d
	return nil
}

func (s *Store) GetTaskDraft(_ context.Context, posterID uuid.UUID) (*domain.TaskDraft, error) {
	defer s.lock()()
	d, ok := s.st.drafts[posterID]
	if !ok {
		return nil, domain.ErrNoDraft
	}
	return &d, nil
}

func (s *Store) DeleteTaskDraft(_ context.Context, posterID uuid.UUID) error {
	defer s.lock()()
	delete(s.st.drafts, posterID)
	return nil
}

// Workspaces

func (s *Store) CreateWorkspace(_ context.Context, w *domain.Workspace) error {
	defer s.lock()()
	s.st.workspaces[w.ID] = *w
	return nil
}

func (s *Store) GetWorkspace(_ context.Context, workspaceID, solverID uuid.UUID) (*domain.Workspace, error) {
	defer s.lock()()
	w, ok := s.st.workspaces[workspaceID]
	if !ok || w.SolverID != solverID {
		return nil, domain.ErrWorkspaceNotFound
	}
	return &w, nil
}

func (s *Store) GetWorkspaceByTask(_ context.Context, taskID, solverID uuid.UUID) (*domain.Workspace, error) {
	defer s.lock()()
	for _, w := range s.st.workspaces {
		if w.TaskID == taskID && w.SolverID == solverID {
			return &w, nil
		}
	}
	return nil, domain.ErrWorkspaceNotFound
}

func (s *Store) UpdateWorkspaceContent(_ context.Context, workspaceID uuid.UUID, content string) error {
	defer s.lock()()
	w, ok := s.st.workspaces[workspaceID]
	if !ok {
		return domain.ErrWorkspaceNotFound
	}
	w.Content = content
	w.UpdatedAt = time.Now()
	s.st.workspaces[workspaceID] = w
	return nil
}

func (s *Store) AddWorkspaceFile(_ context.Context, f *domain.WorkspaceFile) error {
	defer s.lock()()
	s.st.files[f.ID] = *f
	return nil
}

func (s *Store) DeleteWorkspaceFile(_ context.Context, fileID uuid.UUID) (*domain.WorkspaceFile, error) {
	defer s.lock()()
	f, ok := s.st.files[fileID]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	delete(s.st.files, fileID)
	return &f, nil
}

func (s *Store) ListWorkspaceFiles(_ context.Context, workspaceID uuid.UUID) ([]domain.WorkspaceFile, error) {
	defer s.lock()()
	var files []domain.WorkspaceFile
	for _, f := range s.st.files {
		if f.WorkspaceID == workspaceID {
			files = append(files, f)
		}
	}
	return files, nil
}

func (s *Store) MarkWorkspaceFilesFinal(_ context.Context, workspaceID uuid.UUID) error {
	defer s.lock()()
	for id, f := range s.st.files {
		if f.WorkspaceID == workspaceID {
			f.IsDraft = false
			s.st.files[id] = f
		}
	}
	return nil
}

// Solutions

func (s *Store) CreateSolution(_ context.Context, sol *domain.Solution) error {
	defer s.lock()()
	s.st.solutions[sol.ID] = *sol
	return nil
}

func (s *Store) AttachSolutionFile(_ context.Context, solutionID, workspaceFileID uuid.UUID) error {
	defer s.lock()()
	s.st.solutionFiles = append(s.st.solutionFiles, domain.SolutionFile{
		SolutionID:      solutionID,
		WorkspaceFileID: workspaceFileID,
	})
	return nil
}

func (s *Store) GetSolutionByTask(_ context.Context, taskID uuid.UUID) (*domain.Solution, error) {
	defer s.lock()()
	for _, sol := range s.st.solutions {
		if sol.TaskID == taskID {
			return &sol, nil
		}
	}
	return nil, domain.ErrNotSubmitted
}

// SolutionCount reports how many solution rows exist for a task.
func (s *Store) SolutionCount(taskID uuid.UUID) int {
	defer s.lock()()
	n := 0
	for _, sol := range s.st.solutions {
		if sol.TaskID == taskID {
			n++
		}
	}
	return n
}

// Payments

func (s *Store) CreatePayment(_ context.Context, p *domain.Payment) error {
	defer s.lock()()
	s.st.payments[p.ID] = *p
	return nil
}

func (s *Store) GetPayment(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	defer s.lock()()
	p, ok := s.st.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

func (s *Store) SetPaymentStatus(_ context.Context, id uuid.UUID, status domain.PaymentStatus, releaseDate *time.Time) error {
	defer s.lock()()
	p, ok := s.st.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = status
	if releaseDate != nil {
		rd := *releaseDate
		p.ReleaseDate = &rd
	}
	s.st.payments[id] = p
	return nil
}

// Refunds

func (s *Store) CreateRefund(_ context.Context, r *domain.Refund) error {
	defer s.lock()()
	s.st.refunds[r.ID] = *r
	return nil
}

func (s *Store) GetRefund(_ context.Context, id uuid.UUID) (*domain.Refund, error) {
	defer s.lock()()
	r, ok := s.st.refunds[id]
	if !ok {
		return nil, domain.ErrRefundNotFound
	}
	return &r, nil
}

func (s *Store) GetRefundByTask(_ context.Context, taskID uuid.UUID) (*domain.Refund, error) {
	defer s.lock()()
	for _, r := range s.st.refunds {
		if r.TaskID == taskID {
			return &r, nil
		}
	}
	return nil, domain.ErrRefundNotFound
}

func (s *Store) ClaimRefund(_ context.Context, refundID, moderatorID uuid.UUID) (bool, error) {
	defer s.lock()()
	r, ok := s.st.refunds[refundID]
	if !ok || r.ModeratorID != nil {
		return false, nil
	}
	mod := moderatorID
	r.ModeratorID = &mod
	r.Status = domain.RefundStatusProcessing
	s.st.refunds[refundID] = r
	return true, nil
}

func (s *Store) SetRefundStatus(_ context.Context, id uuid.UUID, from []domain.RefundStatus, to domain.RefundStatus, resolvedAt *time.Time) (bool, error) {
	defer s.lock()()
	r, ok := s.st.refunds[id]
	if !ok || !statusIn(r.Status, from) {
		return false, nil
	}
	r.Status = to
	if resolvedAt != nil {
		at := *resolvedAt
		r.ResolvedAt = &at
	}
	s.st.refunds[id] = r
	return true, nil
}

// Blocklist

func (s *Store) GetBlock(_ context.Context, userID, taskID uuid.UUID) (*domain.BlockedSolver, error) {
	defer s.lock()()
	b, ok := s.st.blocks[blockKey{userID, taskID}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) Block(_ context.Context, userID, taskID uuid.UUID, reason string) error {
	defer s.lock()()
	key := blockKey{userID, taskID}
	if _, ok := s.st.blocks[key]; ok {
		return nil
	}
	s.st.blocks[key] = domain.BlockedSolver{
		UserID:    userID,
		TaskID:    taskID,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	return nil
}

func (s *Store) Unblock(_ context.Context, userID, taskID uuid.UUID) error {
	defer s.lock()()
	delete(s.st.blocks, blockKey{userID, taskID})
	return nil
}

// BlockCount reports how many block records exist for a task.
func (s *Store) BlockCount(taskID uuid.UUID) int {
	defer s.lock()()
	n := 0
	for key := range s.st.blocks {
		if key.TaskID == taskID {
			n++
		}
	}
	return n
}

// Users

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	defer s.lock()()
	u, ok := s.st.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) ListModerators(_ context.Context) ([]domain.User, error) {
	defer s.lock()()
	var mods []domain.User
	for _, u := range s.st.users {
		if u.Role == domain.RoleModerator {
			mods = append(mods, u)
		}
	}
	return mods, nil
}

func statusIn[S comparable](status S, in []S) bool {
	for _, s := range in {
		if s == status {
			return true
		}
	}
	return false
}

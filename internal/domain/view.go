package domain

// TaskView is the role-specific read model for a task. The query layer
// produces the variant matching the actor instead of consumers sniffing
// which relations happen to be populated.
type TaskView interface {
	taskView()
}

// SolverView is what an assigned (or blocked) solver sees.
type SolverView struct {
	Task      Task
	Workspace *Workspace
	Block     *BlockedSolver
	Progress  *Progress
}

func (SolverView) taskView() {}

// PosterView is what the task owner sees.
type PosterView struct {
	Task     Task
	Solution *Solution
	Payment  *Payment
	Dispute  *Refund
}

func (PosterView) taskView() {}

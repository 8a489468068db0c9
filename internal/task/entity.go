package task

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the execution state of a task. Transitions only move forward:
// pending -> in_progress -> completed | failed. A task never re-enters
// pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ApprovalStatus is set at most once per task.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Task is one planned unit of executable work. The planner owns creation;
// only the executor mutates Status, ApprovalStatus and Error afterwards.
// Params are fixed at plan time and never threaded from prior task results.
type Task struct {
	ID               string         `json:"id" yaml:"id"`
	Action           string         `json:"action" yaml:"action"`
	Params           map[string]any `json:"params" yaml:"params"`
	Description      string         `json:"description" yaml:"description"`
	Status           Status         `json:"status" yaml:"status"`
	RequiresApproval bool           `json:"requires_approval" yaml:"requires_approval"`
	ApprovalStatus   ApprovalStatus `json:"approval_status" yaml:"approval_status"`
	Error            string         `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" yaml:"updated_at"`
}

// New creates a pending task with a fresh ULID. Every planned task currently
// requires approval; the field exists so future planners can opt out.
func New(action string, params map[string]any, description string) *Task {
	now := time.Now()
	return &Task{
		ID:               ulid.Make().String(),
		Action:           action,
		Params:           params,
		Description:      description,
		Status:           StatusPending,
		RequiresApproval: true,
		ApprovalStatus:   ApprovalPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (t *Task) touch() {
	t.UpdatedAt = time.Now()
}

// Approve records the approval decision. It returns an error if the decision
// was already made.
func (t *Task) Approve() error {
	if t.ApprovalStatus != ApprovalPending {
		return fmt.Errorf("task %s: approval already %s", t.ID, t.ApprovalStatus)
	}
	t.ApprovalStatus = ApprovalApproved
	t.touch()
	return nil
}

// Reject records a rejection and fails the task with reason. A rejected task
// is always failed.
func (t *Task) Reject(reason string) error {
	if t.ApprovalStatus != ApprovalPending {
		return fmt.Errorf("task %s: approval already %s", t.ID, t.ApprovalStatus)
	}
	t.ApprovalStatus = ApprovalRejected
	t.Status = StatusFailed
	t.Error = reason
	t.touch()
	return nil
}

func (t *Task) Start() error {
	if t.Status != StatusPending {
		return fmt.Errorf("task %s: cannot start from %s", t.ID, t.Status)
	}
	t.Status = StatusInProgress
	t.touch()
	return nil
}

func (t *Task) Complete() error {
	if t.Status != StatusInProgress {
		return fmt.Errorf("task %s: cannot complete from %s", t.ID, t.Status)
	}
	t.Status = StatusCompleted
	t.touch()
	return nil
}

// Fail marks the task failed with reason. Error is only ever set here and in
// Reject, so a failed task always carries a reason.
func (t *Task) Fail(reason string) error {
	if t.Status == StatusCompleted || t.Status == StatusFailed {
		return fmt.Errorf("task %s: cannot fail from %s", t.ID, t.Status)
	}
	t.Status = StatusFailed
	t.Error = reason
	t.touch()
	return nil
}

// Clone returns a snapshot of the task for feedback events. Params are
// shallow-copied; the executor never mutates them.
func (t *Task) Clone() *Task {
	c := *t
	c.Params = make(map[string]any, len(t.Params))
	for k, v := range t.Params {
		c.Params[k] = v
	}
	return &c
}

// Result pairs a finished task snapshot with its handler output. Output is
// nil when the task failed or was rejected.
type Result struct {
	Task   *Task          `json:"task" yaml:"task"`
	Output map[string]any `json:"result,omitempty" yaml:"result,omitempty"`
}

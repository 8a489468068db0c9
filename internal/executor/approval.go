package executor

import (
	"context"

	"github.com/intentlab/intentd/internal/task"
)

// Decision is the approval oracle's answer for one task. Cancelled covers a
// caller abandoning a pending approval wait; it halts the run like a
// rejection.
type Decision int

const (
	DecisionApproved Decision = iota
	DecisionRejected
	DecisionCancelled
)

// Oracle answers the approval gate. It is consulted once per
// approval-requiring task, in plan order, and may block indefinitely (e.g.
// interactive approval).
type Oracle interface {
	Decide(ctx context.Context, t *task.Task) (Decision, error)
}

type OracleFunc func(ctx context.Context, t *task.Task) (Decision, error)

func (f OracleFunc) Decide(ctx context.Context, t *task.Task) (Decision, error) {
	return f(ctx, t)
}

// AutoApprove approves everything. Useful for tests and trusted plans.
func AutoApprove() Oracle {
	return OracleFunc(func(context.Context, *task.Task) (Decision, error) {
		return DecisionApproved, nil
	})
}

// ApprovalRequest is one pending gate handed to an external decider. Respond
// must receive exactly one decision.
type ApprovalRequest struct {
	Task    *task.Task
	Respond chan Decision
}

// ChannelOracle bridges the executor's synchronous gate to a concurrent
// transport: Decide parks on a per-request response channel while a consumer
// (WebSocket handler, TUI, ...) drains Requests.
type ChannelOracle struct {
	requests chan *ApprovalRequest
}

func NewChannelOracle(buf int) *ChannelOracle {
	return &ChannelOracle{
		requests: make(chan *ApprovalRequest, buf),
	}
}

func (o *ChannelOracle) Requests() <-chan *ApprovalRequest {
	return o.requests
}

func (o *ChannelOracle) Decide(ctx context.Context, t *task.Task) (Decision, error) {
	req := &ApprovalRequest{
		Task:    t,
		Respond: make(chan Decision, 1),
	}
	select {
	case o.requests <- req:
	case <-ctx.Done():
		return DecisionCancelled, ctx.Err()
	}
	select {
	case decision := <-req.Respond:
		return decision, nil
	case <-ctx.Done():
		return DecisionCancelled, ctx.Err()
	}
}

package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/intentlab/intentd/internal/action"
	"github.com/intentlab/intentd/internal/eventbus"
	"github.com/intentlab/intentd/internal/task"
)

// ReasonRejected is the task error recorded for an explicit user rejection,
// on both the streaming and the single-task approval surfaces.
const ReasonRejected = "User rejected this task"

// Executor drives one plan through approval, dispatch and completion. An
// instance is stateless across runs; concurrent runs share nothing but the
// read-only registry.
type Executor struct {
	registry       *action.Registry
	handlerTimeout time.Duration
}

type Option func(*Executor)

// WithHandlerTimeout bounds each handler call. Zero leaves handlers
// unbounded, matching connectors that manage their own deadlines.
func WithHandlerTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.handlerTimeout = d
	}
}

func New(registry *action.Registry, opts ...Option) *Executor {
	e := &Executor{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes tasks strictly in order. Every task emits task_started and
// then exactly one of task_completed / task_failed / task_rejected; tasks
// after a rejection emit nothing. A rejection (or cancelled approval) halts
// the whole run, while handler failures and unknown actions are recorded on
// the task and the run continues. Handler errors never escape as errors:
// the returned results and the observed feedback stream are the only
// outcomes.
func (e *Executor) Run(ctx context.Context, tasks []*task.Task, sink Sink, oracle Oracle) []*task.Result {
	results := make([]*task.Result, 0, len(tasks))

	for _, t := range tasks {
		emit(ctx, sink, &eventbus.Event{
			Type: eventbus.TypeTaskStarted,
			Task: t.Clone(),
		})

		if t.RequiresApproval {
			decision, err := oracle.Decide(ctx, t.Clone())
			if err != nil || decision != DecisionApproved {
				reason := ReasonRejected
				if err != nil || decision == DecisionCancelled {
					reason = "Approval cancelled"
				}
				if rerr := t.Reject(reason); rerr != nil {
					slog.Error("executor: reject transition failed", "task_id", t.ID, "error", rerr)
				}
				emit(ctx, sink, &eventbus.Event{
					Type:  eventbus.TypeTaskRejected,
					Task:  t.Clone(),
					Error: t.Error,
				})
				// Tasks after a rejection are never consulted or started.
				break
			}
			if aerr := t.Approve(); aerr != nil {
				slog.Error("executor: approve transition failed", "task_id", t.ID, "error", aerr)
			}
		}

		if result := e.ExecuteApproved(ctx, t, sink); result != nil {
			results = append(results, result)
		}
	}

	return results
}

// ExecuteApproved dispatches one task that has already passed (or never
// required) its approval gate: in_progress, registry lookup, handler call,
// completed or failed plus the matching feedback event. It is shared by Run
// and by the single-task session approval surface. The returned Result is
// nil when the task failed.
func (e *Executor) ExecuteApproved(ctx context.Context, t *task.Task, sink Sink) *task.Result {
	if err := t.Start(); err != nil {
		slog.Error("executor: start transition failed", "task_id", t.ID, "error", err)
	}

	handler, ok := e.registry.Lookup(t.Action)
	if !ok {
		// A planner/registry contract violation: record it and keep going so
		// one bad step does not block unrelated later steps.
		e.fail(ctx, t, sink, fmt.Sprintf("Unknown action: %s", t.Action))
		slog.Warn("executor: unknown action", "task_id", t.ID, "action", t.Action)
		return nil
	}

	output, err := e.invoke(ctx, handler, t.Params)
	if err != nil {
		e.fail(ctx, t, sink, err.Error())
		return nil
	}

	if cerr := t.Complete(); cerr != nil {
		slog.Error("executor: complete transition failed", "task_id", t.ID, "error", cerr)
	}
	result := &task.Result{Task: t.Clone(), Output: output}
	emit(ctx, sink, &eventbus.Event{
		Type:   eventbus.TypeTaskCompleted,
		Task:   t.Clone(),
		Result: output,
	})
	return result
}

func (e *Executor) invoke(ctx context.Context, handler action.Handler, params map[string]any) (map[string]any, error) {
	if e.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.handlerTimeout)
		defer cancel()
	}
	return handler(ctx, params)
}

func (e *Executor) fail(ctx context.Context, t *task.Task, sink Sink, reason string) {
	if err := t.Fail(reason); err != nil {
		slog.Error("executor: fail transition failed", "task_id", t.ID, "error", err)
	}
	emit(ctx, sink, &eventbus.Event{
		Type:  eventbus.TypeTaskFailed,
		Task:  t.Clone(),
		Error: t.Error,
	})
}

// emit stamps the event before delivery. Every sink sees a timestamp, not
// just the bus-backed one.
func emit(ctx context.Context, sink Sink, event *eventbus.Event) {
	event.Timestamp = time.Now()
	sink.Emit(ctx, event)
}

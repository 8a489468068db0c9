package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/intentlab/intentd/internal/action"
	"github.com/intentlab/intentd/internal/eventbus"
	"github.com/intentlab/intentd/internal/task"
)

// recordingSink collects the feedback stream in emission order.
type recordingSink struct {
	events []*eventbus.Event
}

func (s *recordingSink) Emit(_ context.Context, event *eventbus.Event) {
	s.events = append(s.events, event)
}

func (s *recordingSink) types() []eventbus.Type {
	types := make([]eventbus.Type, 0, len(s.events))
	for _, ev := range s.events {
		types = append(types, ev.Type)
	}
	return types
}

func okHandler(output map[string]any) action.Handler {
	return func(context.Context, map[string]any) (map[string]any, error) {
		return output, nil
	}
}

func newTestRegistry(t *testing.T, handlers map[string]action.Handler) *action.Registry {
	t.Helper()
	r := action.NewRegistry()
	for name, h := range handlers {
		if err := r.Register(name, h); err != nil {
			t.Fatalf("failed to register %s: %v", name, err)
		}
	}
	return r
}

func equalTypes(got, want []eventbus.Type) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestRunHappyPath(t *testing.T) {
	registry := newTestRegistry(t, map[string]action.Handler{
		"verify":  okHandler(map[string]any{"verified": true}),
		"confirm": okHandler(map[string]any{"confirmed": true}),
		"execute": okHandler(map[string]any{"transaction_id": "tx_1"}),
	})
	tasks := []*task.Task{
		task.New("verify", nil, "Verifying payment details"),
		task.New("confirm", nil, "Confirming payment"),
		task.New("execute", nil, "Sending payment"),
	}
	sink := &recordingSink{}

	results := New(registry).Run(context.Background(), tasks, sink, AutoApprove())

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []eventbus.Type{
		eventbus.TypeTaskStarted, eventbus.TypeTaskCompleted,
		eventbus.TypeTaskStarted, eventbus.TypeTaskCompleted,
		eventbus.TypeTaskStarted, eventbus.TypeTaskCompleted,
	}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("event stream mismatch: got %v, want %v", got, want)
	}
	for i, tk := range tasks {
		if tk.Status != task.StatusCompleted {
			t.Errorf("task %d: expected completed, got %s", i, tk.Status)
		}
		if tk.ApprovalStatus != task.ApprovalApproved {
			t.Errorf("task %d: expected approved, got %s", i, tk.ApprovalStatus)
		}
	}
	if results[2].Output["transaction_id"] != "tx_1" {
		t.Errorf("expected handler output in result, got %v", results[2].Output)
	}
}

func TestRunRejectionHaltsPlan(t *testing.T) {
	registry := newTestRegistry(t, map[string]action.Handler{
		"a": okHandler(map[string]any{"step": "a"}),
		"b": okHandler(map[string]any{"step": "b"}),
		"c": okHandler(map[string]any{"step": "c"}),
	})
	tasks := []*task.Task{
		task.New("a", nil, "step a"),
		task.New("b", nil, "step b"),
		task.New("c", nil, "step c"),
	}
	sink := &recordingSink{}

	// Approve the first gate, reject the second.
	decisions := []Decision{DecisionApproved, DecisionRejected}
	i := 0
	oracle := OracleFunc(func(context.Context, *task.Task) (Decision, error) {
		d := decisions[i]
		i++
		return d, nil
	})

	results := New(registry).Run(context.Background(), tasks, sink, oracle)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	want := []eventbus.Type{
		eventbus.TypeTaskStarted, eventbus.TypeTaskCompleted,
		eventbus.TypeTaskStarted, eventbus.TypeTaskRejected,
	}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("event stream mismatch: got %v, want %v", got, want)
	}

	if tasks[1].Status != task.StatusFailed {
		t.Errorf("rejected task: expected failed, got %s", tasks[1].Status)
	}
	if tasks[1].ApprovalStatus != task.ApprovalRejected {
		t.Errorf("rejected task: expected rejection recorded, got %s", tasks[1].ApprovalStatus)
	}
	if tasks[1].Error != ReasonRejected {
		t.Errorf("rejected task: expected %q, got %q", ReasonRejected, tasks[1].Error)
	}
	// The third task was never consulted, started or mutated.
	if tasks[2].Status != task.StatusPending {
		t.Errorf("downstream task: expected pending, got %s", tasks[2].Status)
	}
	if i != 2 {
		t.Errorf("oracle consulted %d times, want 2", i)
	}
}

func TestRunUnknownActionContinues(t *testing.T) {
	registry := newTestRegistry(t, map[string]action.Handler{
		"known": okHandler(map[string]any{"done": true}),
	})
	tasks := []*task.Task{
		task.New("missing_action", nil, "broken step"),
		task.New("known", nil, "working step"),
	}
	sink := &recordingSink{}

	results := New(registry).Run(context.Background(), tasks, sink, AutoApprove())

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	want := []eventbus.Type{
		eventbus.TypeTaskStarted, eventbus.TypeTaskFailed,
		eventbus.TypeTaskStarted, eventbus.TypeTaskCompleted,
	}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("event stream mismatch: got %v, want %v", got, want)
	}
	if tasks[0].Error != "Unknown action: missing_action" {
		t.Errorf("unexpected error message: %q", tasks[0].Error)
	}
	if tasks[1].Status != task.StatusCompleted {
		t.Errorf("second task: expected completed, got %s", tasks[1].Status)
	}
}

func TestRunHandlerErrorContinues(t *testing.T) {
	registry := newTestRegistry(t, map[string]action.Handler{
		"fails": func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("connector unavailable")
		},
		"works": okHandler(map[string]any{"ok": true}),
	})
	tasks := []*task.Task{
		task.New("fails", nil, "failing step"),
		task.New("works", nil, "working step"),
	}
	sink := &recordingSink{}

	results := New(registry).Run(context.Background(), tasks, sink, AutoApprove())

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if tasks[0].Status != task.StatusFailed {
		t.Errorf("failing task: expected failed, got %s", tasks[0].Status)
	}
	if tasks[0].Error != "connector unavailable" {
		t.Errorf("unexpected error message: %q", tasks[0].Error)
	}
	if tasks[1].Status != task.StatusCompleted {
		t.Errorf("second task: expected completed, got %s", tasks[1].Status)
	}
}

func TestRunCancelledApprovalHalts(t *testing.T) {
	registry := newTestRegistry(t, map[string]action.Handler{
		"a": okHandler(nil),
	})
	tasks := []*task.Task{
		task.New("a", nil, "step a"),
		task.New("a", nil, "step b"),
	}
	sink := &recordingSink{}

	oracle := OracleFunc(func(ctx context.Context, _ *task.Task) (Decision, error) {
		return DecisionCancelled, context.Canceled
	})

	results := New(registry).Run(context.Background(), tasks, sink, oracle)

	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	want := []eventbus.Type{eventbus.TypeTaskStarted, eventbus.TypeTaskRejected}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("event stream mismatch: got %v, want %v", got, want)
	}
	if tasks[0].Error != "Approval cancelled" {
		t.Errorf("unexpected error message: %q", tasks[0].Error)
	}
}

func TestFeedbackEventsCarryTimestamps(t *testing.T) {
	registry := newTestRegistry(t, map[string]action.Handler{
		"ok": okHandler(map[string]any{"done": true}),
	})
	tasks := []*task.Task{
		task.New("ok", nil, "working step"),
		task.New("missing_action", nil, "broken step"),
	}
	sink := &recordingSink{}

	before := time.Now()
	New(registry).Run(context.Background(), tasks, sink, AutoApprove())

	// started/completed/started/failed, each stamped at emission even though
	// the sink is not the bus.
	if len(sink.events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(sink.events))
	}
	for i, ev := range sink.events {
		if ev.Timestamp.IsZero() {
			t.Errorf("event %d (%s): zero timestamp", i, ev.Type)
		}
		if ev.Timestamp.Before(before) {
			t.Errorf("event %d (%s): timestamp predates the run", i, ev.Type)
		}
	}
}

func TestExecuteApprovedEmitsResult(t *testing.T) {
	registry := newTestRegistry(t, map[string]action.Handler{
		"launch_app": okHandler(map[string]any{"launched": true}),
	})
	tk := task.New("launch_app", map[string]any{"app_name": "maps"}, "Opening maps")
	if err := tk.Approve(); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	sink := &recordingSink{}

	result := New(registry).ExecuteApproved(context.Background(), tk, sink)

	if result == nil {
		t.Fatal("expected a result")
	}
	if result.Output["launched"] != true {
		t.Errorf("unexpected output: %v", result.Output)
	}
	want := []eventbus.Type{eventbus.TypeTaskCompleted}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("event stream mismatch: got %v, want %v", got, want)
	}
	if tk.Status != task.StatusCompleted {
		t.Errorf("expected completed, got %s", tk.Status)
	}
}

func TestChannelOracleRoundTrip(t *testing.T) {
	oracle := NewChannelOracle(1)
	tk := task.New("a", nil, "step a")

	go func() {
		req := <-oracle.Requests()
		req.Respond <- DecisionApproved
	}()

	decision, err := oracle.Decide(context.Background(), tk)
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if decision != DecisionApproved {
		t.Errorf("expected approved, got %v", decision)
	}
}

func TestChannelOracleContextCancel(t *testing.T) {
	oracle := NewChannelOracle(1)
	tk := task.New("a", nil, "step a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	decision, err := oracle.Decide(ctx, tk)
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
	if decision != DecisionCancelled {
		t.Errorf("expected cancelled, got %v", decision)
	}
}

package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentlab/intentd/internal/action"
	"github.com/intentlab/intentd/internal/eventbus"
	"github.com/intentlab/intentd/internal/executor"
	"github.com/intentlab/intentd/internal/intent"
	"github.com/intentlab/intentd/internal/planner"
	"github.com/intentlab/intentd/internal/session"
	"github.com/intentlab/intentd/internal/session/repositoryimpl"
	"github.com/intentlab/intentd/internal/task"
	"github.com/intentlab/intentd/pkg/cerr"
	"github.com/intentlab/intentd/pkg/storage"
)

func newTestService(t *testing.T) (*session.Service, *eventbus.Bus) {
	t.Helper()

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	registry := action.NewRegistry()
	simulator := action.NewSimulator(action.WithLatency(0))
	require.NoError(t, simulator.RegisterAll(registry))

	bus := eventbus.New()
	svc := session.NewService(
		intent.NewRuleParser(),
		planner.New(),
		executor.New(registry),
		repositoryimpl.NewYAMLRepository(store),
		bus,
	)
	return svc, bus
}

func TestCreateFromTextEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateFromText(context.Background(), "", "")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestCreateFromTextTransaction(t *testing.T) {
	svc, bus := newTestService(t)
	_, events := bus.Subscribe(8)

	sess, err := svc.CreateFromText(context.Background(), "", "send $50 to alice")
	require.NoError(t, err)

	assert.Equal(t, session.StatusPendingApproval, sess.Status)
	require.Len(t, sess.Tasks, 3)
	assert.Equal(t, "verify_payment_details", sess.Tasks[0].Action)
	assert.Equal(t, "execute_transaction", sess.Tasks[2].Action)
	assert.Contains(t, sess.Summary(), "Here's what I'll do:")

	// session_created then approval_requested.
	created := <-events
	assert.Equal(t, eventbus.TypeSessionCreated, created.Type)
	assert.Equal(t, sess.ID, created.SessionID)
	requested := <-events
	assert.Equal(t, eventbus.TypeApprovalRequested, requested.Type)
	assert.Contains(t, requested.Metadata["summary"], "Verifying payment details")

	// The session round-trips through storage.
	stored, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, stored.ID)
	assert.Len(t, stored.Tasks, 3)
}

func TestCreateFromTextUnknownIntentStillPlans(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.CreateFromText(context.Background(), "", "tell me a joke")
	require.NoError(t, err)
	require.Len(t, sess.Tasks, 1)
	assert.Equal(t, "unsupported_intent", sess.Tasks[0].Action)
}

func TestApproveTaskUnknownSession(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ApproveTask(context.Background(), "missing", "whatever", true)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestApproveTaskUnknownTask(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.CreateFromText(context.Background(), "", "open maps")
	require.NoError(t, err)

	_, err = svc.ApproveTask(context.Background(), sess.ID, "not-a-task", true)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestApproveTaskRejection(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.CreateFromText(context.Background(), "", "open maps")
	require.NoError(t, err)
	require.Len(t, sess.Tasks, 2)

	outcome, err := svc.ApproveTask(context.Background(), sess.ID, sess.Tasks[0].ID, false)
	require.NoError(t, err)
	assert.Contains(t, outcome.Message, "rejected")
	assert.Nil(t, outcome.Result)
	assert.Equal(t, session.StatusRejected, outcome.Session.Status)

	stored, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ApprovalRejected, stored.Tasks[0].ApprovalStatus)
	assert.Equal(t, task.StatusFailed, stored.Tasks[0].Status)
	assert.Equal(t, executor.ReasonRejected, stored.Tasks[0].Error)
	// The second task was never touched.
	assert.Equal(t, task.StatusPending, stored.Tasks[1].Status)
}

func TestApproveTaskExecutes(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.CreateFromText(context.Background(), "", "open maps")
	require.NoError(t, err)

	outcome, err := svc.ApproveTask(context.Background(), sess.ID, sess.Tasks[0].ID, true)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, true, outcome.Result.Output["installed"])
	assert.Equal(t, session.StatusCompleted, outcome.Session.Status)

	stored, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stored.Tasks[0].Status)
}

func TestApproveTaskFailureEmitsSessionFailed(t *testing.T) {
	// An empty registry makes every dispatch fail with an unknown action.
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	bus := eventbus.New()
	svc := session.NewService(
		intent.NewRuleParser(),
		planner.New(),
		executor.New(action.NewRegistry()),
		repositoryimpl.NewYAMLRepository(store),
		bus,
	)

	sess, err := svc.CreateFromText(context.Background(), "", "open maps")
	require.NoError(t, err)

	_, events := bus.Subscribe(8)
	outcome, err := svc.ApproveTask(context.Background(), sess.ID, sess.Tasks[0].ID, true)
	require.NoError(t, err)
	assert.Nil(t, outcome.Result)
	assert.Contains(t, outcome.Message, "failed")
	assert.Equal(t, session.StatusFailed, outcome.Session.Status)

	failed := <-events
	assert.Equal(t, eventbus.TypeTaskFailed, failed.Type)
	finished := <-events
	assert.Equal(t, eventbus.TypeSessionFailed, finished.Type)
	assert.Equal(t, sess.ID, finished.SessionID)
}

func TestApproveTaskDecidedOnce(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.CreateFromText(context.Background(), "", "open maps")
	require.NoError(t, err)

	_, err = svc.ApproveTask(context.Background(), sess.ID, sess.Tasks[0].ID, true)
	require.NoError(t, err)

	_, err = svc.ApproveTask(context.Background(), sess.ID, sess.Tasks[0].ID, true)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestRunAutoApprove(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.CreateFromText(context.Background(), "", "send $50 to alice")
	require.NoError(t, err)

	results, err := svc.Run(context.Background(), sess.ID, executor.AutoApprove())
	require.NoError(t, err)
	assert.Len(t, results, 3)

	stored, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, stored.Status)
	for _, tk := range stored.Tasks {
		assert.Equal(t, task.StatusCompleted, tk.Status)
	}
}

func TestRunRejectionMarksSessionRejected(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.CreateFromText(context.Background(), "", "send $50 to alice")
	require.NoError(t, err)

	rejectAll := executor.OracleFunc(func(context.Context, *task.Task) (executor.Decision, error) {
		return executor.DecisionRejected, nil
	})
	results, err := svc.Run(context.Background(), sess.ID, rejectAll)
	require.NoError(t, err)
	assert.Empty(t, results)

	stored, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusRejected, stored.Status)
}

func TestRunRequiresPendingApproval(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.CreateFromText(context.Background(), "", "open maps")
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), sess.ID, executor.AutoApprove())
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), sess.ID, executor.AutoApprove())
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

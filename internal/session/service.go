package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/intentlab/intentd/internal/eventbus"
	"github.com/intentlab/intentd/internal/executor"
	"github.com/intentlab/intentd/internal/intent"
	"github.com/intentlab/intentd/internal/planner"
	"github.com/intentlab/intentd/internal/task"
	"github.com/intentlab/intentd/pkg/cerr"
)

// Service owns the session lifecycle: parse text into a plan, hold it for
// approval, and execute it on either the single-task or the full-run surface.
type Service struct {
	parser  intent.Parser
	planner *planner.Planner
	exec    *executor.Executor
	repo    Repository
	bus     *eventbus.Bus
}

func NewService(parser intent.Parser, p *planner.Planner, exec *executor.Executor, repo Repository, bus *eventbus.Bus) *Service {
	return &Service{
		parser:  parser,
		planner: p,
		exec:    exec,
		repo:    repo,
		bus:     bus,
	}
}

// CreateFromText parses the command, builds the plan and stores the session
// as pending_approval. Unsupported or underspecified commands still produce
// a session (with a fallback or clarification plan) rather than an error.
func (s *Service) CreateFromText(ctx context.Context, id, text string) (*Session, error) {
	if text == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "text is required", nil)
	}

	pi, err := s.parser.Parse(text)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to parse command", err)
	}
	tasks := s.planner.Plan(pi)

	sess := New(id, text, pi, tasks)
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.bus.Publish(&eventbus.Event{
		Type:      eventbus.TypeSessionCreated,
		SessionID: sess.ID,
		Metadata:  map[string]string{"intent": pi.Intent},
	})
	if requiresApproval(tasks) {
		s.bus.Publish(&eventbus.Event{
			Type:      eventbus.TypeApprovalRequested,
			SessionID: sess.ID,
			Task:      tasks[0].Clone(),
			Metadata:  map[string]string{"summary": sess.Summary()},
		})
	}

	slog.Info("session created",
		"session_id", sess.ID,
		"intent", pi.Intent,
		"tasks", len(tasks),
	)
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Session, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ApprovalOutcome is the result of the single-task approval surface.
type ApprovalOutcome struct {
	Message string       `json:"message"`
	Result  *task.Result `json:"result,omitempty"`
	Session *Session     `json:"-"`
}

// ApproveTask resolves one task's gate out of band and, on approval,
// dispatches that task directly, bypassing the full-plan loop. Unknown
// session or task ids are client errors.
func (s *Service) ApproveTask(ctx context.Context, sessionID, taskID string, approved bool) (*ApprovalOutcome, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	t, ok := sess.Task(taskID)
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s not found in session", taskID), nil)
	}
	if t.ApprovalStatus != task.ApprovalPending {
		return nil, cerr.NewError(cerr.FailedPrecondition, "task approval already decided", nil)
	}

	sink := executor.NewBusSink(s.bus, sess.ID)

	if !approved {
		if err := t.Reject(executor.ReasonRejected); err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", err)
		}
		sess.SetStatus(StatusRejected)
		if err := s.repo.Update(ctx, sess); err != nil {
			return nil, err
		}
		s.bus.Publish(&eventbus.Event{
			Type:      eventbus.TypeSessionRejected,
			SessionID: sess.ID,
			Task:      t.Clone(),
		})
		return &ApprovalOutcome{
			Message: fmt.Sprintf("Task %q rejected", t.Description),
			Session: sess,
		}, nil
	}

	if err := t.Approve(); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", err)
	}
	result := s.exec.ExecuteApproved(ctx, t, sink)

	eventType := eventbus.TypeSessionCompleted
	if result != nil {
		sess.SetStatus(StatusCompleted)
	} else {
		sess.SetStatus(StatusFailed)
		eventType = eventbus.TypeSessionFailed
	}
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}
	s.bus.Publish(&eventbus.Event{
		Type:      eventType,
		SessionID: sess.ID,
		Task:      t.Clone(),
	})

	if result == nil {
		return &ApprovalOutcome{
			Message: fmt.Sprintf("Task %q failed: %s", t.Description, t.Error),
			Session: sess,
		}, nil
	}
	return &ApprovalOutcome{
		Message: fmt.Sprintf("Task %q approved and executed", t.Description),
		Result:  result,
		Session: sess,
	}, nil
}

// Run drives the whole stored plan through the executor with the given
// approval oracle, streaming feedback onto the bus. Partial completion is a
// normal outcome.
func (s *Service) Run(ctx context.Context, sessionID string, oracle executor.Oracle) ([]*task.Result, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusPendingApproval {
		return nil, cerr.NewError(cerr.FailedPrecondition, fmt.Sprintf("session is %s", sess.Status), nil)
	}

	sess.SetStatus(StatusExecuting)
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}

	results := s.exec.Run(ctx, sess.Tasks, executor.NewBusSink(s.bus, sess.ID), oracle)

	final := StatusCompleted
	eventType := eventbus.TypeSessionCompleted
	for _, t := range sess.Tasks {
		if t.ApprovalStatus == task.ApprovalRejected {
			final = StatusRejected
			eventType = eventbus.TypeSessionRejected
			break
		}
	}
	sess.SetStatus(final)
	if err := s.repo.Update(ctx, sess); err != nil {
		return results, err
	}
	s.bus.Publish(&eventbus.Event{
		Type:      eventType,
		SessionID: sess.ID,
		Metadata:  map[string]string{"results": fmt.Sprintf("%d", len(results))},
	})

	slog.Info("session run finished",
		"session_id", sess.ID,
		"status", final,
		"results", len(results),
	)
	return results, nil
}

func requiresApproval(tasks []*task.Task) bool {
	for _, t := range tasks {
		if t.RequiresApproval {
			return true
		}
	}
	return false
}

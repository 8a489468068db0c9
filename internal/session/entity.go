package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/intentlab/intentd/internal/intent"
	"github.com/intentlab/intentd/internal/task"
)

// Status is the lifecycle of one command session. A session holds exactly
// one active plan; nothing is kept once the session is deleted.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusExecuting       Status = "executing"
	StatusCompleted       Status = "completed"
	StatusRejected        Status = "rejected"
	StatusFailed          Status = "failed"
)

// Session binds a parsed command to its task plan and approval state.
type Session struct {
	ID        string               `yaml:"id" json:"id"`
	Text      string               `yaml:"text" json:"text"`
	Intent    *intent.ParsedIntent `yaml:"intent" json:"intent"`
	Tasks     []*task.Task         `yaml:"tasks" json:"tasks"`
	Status    Status               `yaml:"status" json:"status"`
	CreatedAt time.Time            `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time            `yaml:"updated_at" json:"updated_at"`
}

func New(id, text string, pi *intent.ParsedIntent, tasks []*task.Task) *Session {
	if id == "" {
		id = ulid.Make().String()
	}
	now := time.Now()
	return &Session{
		ID:        id,
		Text:      text,
		Intent:    pi,
		Tasks:     tasks,
		Status:    StatusPendingApproval,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Task finds a plan task by id.
func (s *Session) Task(id string) (*task.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Summary renders the human-readable plan description shown before approval.
func (s *Session) Summary() string {
	var b strings.Builder
	b.WriteString("I'll help you with that. Here's what I'll do:")
	for _, t := range s.Tasks {
		fmt.Fprintf(&b, "\n- %s", t.Description)
	}
	return b.String()
}

func (s *Session) SetStatus(status Status) {
	s.Status = status
	s.UpdatedAt = time.Now()
}

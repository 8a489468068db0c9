package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/intentlab/intentd/internal/intent"
	"github.com/intentlab/intentd/internal/session"
	"github.com/intentlab/intentd/internal/task"
	"github.com/intentlab/intentd/pkg/cerr"
)

type commandHandler struct {
	sessions *session.Service
}

func newCommandHandler(sessions *session.Service) *commandHandler {
	return &commandHandler{sessions: sessions}
}

func (h *commandHandler) Routes(r chi.Router) {
	r.Post("/command", h.command)
	r.Post("/approve-task", h.approveTask)
	r.Get("/sessions", h.listSessions)
	r.Get("/sessions/{sessionID}", h.getSession)
	r.Delete("/sessions/{sessionID}", h.deleteSession)
}

type commandRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

type commandResponse struct {
	SessionID    string               `json:"session_id"`
	Message      string               `json:"message"`
	ParsedIntent *intent.ParsedIntent `json:"parsed_intent"`
	Tasks        []*task.Task         `json:"tasks"`
}

func (h *commandHandler) command(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	sess, err := h.sessions.CreateFromText(ctx, req.SessionID, req.Text)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	cerr.SetJSONResponse(ctx, &commandResponse{
		SessionID:    sess.ID,
		Message:      sess.Summary(),
		ParsedIntent: sess.Intent,
		Tasks:        sess.Tasks,
	})
}

type approveTaskRequest struct {
	SessionID string `json:"session_id"`
	TaskID    string `json:"task_id"`
	Approved  bool   `json:"approved"`
}

type approveTaskResponse struct {
	Message       string         `json:"message"`
	Result        *task.Result   `json:"result,omitempty"`
	SessionStatus session.Status `json:"session_status"`
}

func (h *commandHandler) approveTask(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req approveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.SessionID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "session_id is required", nil)
		return
	}
	if req.TaskID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "task_id is required", nil)
		return
	}

	outcome, err := h.sessions.ApproveTask(ctx, req.SessionID, req.TaskID, req.Approved)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	cerr.SetJSONResponse(ctx, &approveTaskResponse{
		Message:       outcome.Message,
		Result:        outcome.Result,
		SessionStatus: outcome.Session.Status,
	})
}

type listSessionsResponse struct {
	Sessions []*session.Session `json:"sessions"`
}

func (h *commandHandler) listSessions(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.sessions.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &listSessionsResponse{Sessions: sessions})
}

func (h *commandHandler) getSession(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.sessions.Get(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sess)
}

func (h *commandHandler) deleteSession(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.sessions.Delete(ctx, chi.URLParam(r, "sessionID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}

package server

import (
	"context"

	"github.com/sourcegraph/conc"
	"golang.org/x/net/websocket"

	"github.com/intentlab/intentd/internal/executor"
	"github.com/intentlab/intentd/internal/session"
	"github.com/intentlab/intentd/internal/task"
)

// runServerMessage is what the run endpoint writes: approval prompts while
// the plan is executing, then a single final summary.
type runServerMessage struct {
	Type    string         `json:"type"`
	Task    *task.Task     `json:"task,omitempty"`
	Results []*task.Result `json:"results,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type runClientDecision struct {
	TaskID   string `json:"task_id"`
	Approved bool   `json:"approved"`
}

type runOutcome struct {
	results []*task.Result
	err     error
}

// newRunHandler drives a stored plan over one full-duplex WebSocket: the
// server pushes an approval_request message for each gated task and waits for
// the client's decision before moving on. Closing the socket mid-run counts
// as cancelling the pending approval, which halts the plan.
func newRunHandler(sessions *session.Service) websocket.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()

		r := ws.Request()
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			_ = websocket.JSON.Send(ws, &runServerMessage{Type: "error", Error: "session_id is required"})
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		oracle := executor.NewChannelOracle(1)
		done := make(chan *runOutcome, 1)

		var wg conc.WaitGroup
		defer wg.Wait()
		wg.Go(func() {
			results, err := sessions.Run(ctx, sessionID, oracle)
			done <- &runOutcome{results: results, err: err}
		})

		for {
			select {
			case outcome := <-done:
				msg := &runServerMessage{Type: "run_finished", Results: outcome.results}
				if outcome.err != nil {
					msg.Type = "error"
					msg.Error = outcome.err.Error()
				}
				_ = websocket.JSON.Send(ws, msg)
				return
			case req := <-oracle.Requests():
				if err := websocket.JSON.Send(ws, &runServerMessage{Type: "approval_request", Task: req.Task}); err != nil {
					req.Respond <- executor.DecisionCancelled
					cancel()
					continue
				}
				var decision runClientDecision
				if err := websocket.JSON.Receive(ws, &decision); err != nil {
					req.Respond <- executor.DecisionCancelled
					cancel()
					continue
				}
				if decision.Approved {
					req.Respond <- executor.DecisionApproved
				} else {
					req.Respond <- executor.DecisionRejected
				}
			}
		}
	})
}

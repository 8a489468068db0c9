package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/intentlab/intentd/internal/eventbus"
)

// Dispatcher watches the event bus and pushes a web notification whenever a
// plan is waiting on user approval, so a backgrounded client still sees the
// gate.
type Dispatcher struct {
	bus    *eventbus.Bus
	sender *Sender
}

func NewDispatcher(bus *eventbus.Bus, sender *Sender) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		sender: sender,
	}
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	id, events := d.bus.Subscribe(64)
	defer d.bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != eventbus.TypeApprovalRequested {
				continue
			}
			d.notify(ctx, ev)
		}
	}
}

func (d *Dispatcher) notify(ctx context.Context, ev *eventbus.Event) {
	body := "A planned task is waiting for your approval."
	if ev.Task != nil && ev.Task.Description != "" {
		body = ev.Task.Description
	}
	d.sender.SendToAll(ctx, &NotificationPayload{
		Title: "Approval Required",
		Body:  body,
		URL:   fmt.Sprintf("/sessions/%s", ev.SessionID),
		Tag:   fmt.Sprintf("approval-%s", ev.SessionID),
	})
	slog.Debug("push notification: approval notification dispatched", "session_id", ev.SessionID)
}

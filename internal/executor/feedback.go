package executor

import (
	"context"

	"github.com/intentlab/intentd/internal/eventbus"
)

// Sink receives the feedback stream of a run. Delivery is one-way: the
// executor never waits on a sink beyond the Emit call itself.
type Sink interface {
	Emit(ctx context.Context, event *eventbus.Event)
}

type SinkFunc func(ctx context.Context, event *eventbus.Event)

func (f SinkFunc) Emit(ctx context.Context, event *eventbus.Event) {
	f(ctx, event)
}

// NopSink drops every event.
func NopSink() Sink {
	return SinkFunc(func(context.Context, *eventbus.Event) {})
}

// BusSink publishes feedback onto the shared event bus, stamping each event
// with the owning session id.
type BusSink struct {
	bus       *eventbus.Bus
	sessionID string
}

func NewBusSink(bus *eventbus.Bus, sessionID string) *BusSink {
	return &BusSink{bus: bus, sessionID: sessionID}
}

func (s *BusSink) Emit(_ context.Context, event *eventbus.Event) {
	event.SessionID = s.sessionID
	s.bus.Publish(event)
}

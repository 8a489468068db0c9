package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentlab/intentd/internal/task"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(8)
	defer bus.Unsubscribe(id)

	tk := task.New("launch_app", nil, "Opening maps")
	bus.Publish(&Event{
		Type:      TypeTaskStarted,
		SessionID: "sess-1",
		Task:      tk,
	})

	select {
	case ev := <-ch:
		require.NotNil(t, ev)
		assert.Equal(t, TypeTaskStarted, ev.Type)
		assert.Equal(t, "sess-1", ev.SessionID)
		assert.Equal(t, tk.ID, ev.Task.ID)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered within timeout")
	}
}

func TestFanout(t *testing.T) {
	bus := New()
	id1, ch1 := bus.Subscribe(8)
	defer bus.Unsubscribe(id1)
	id2, ch2 := bus.Subscribe(8)
	defer bus.Unsubscribe(id2)

	bus.Publish(&Event{Type: TypeSessionCreated})

	for i, ch := range []<-chan *Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, TypeSessionCreated, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	// Second publish exceeds the buffer and is dropped, never blocking.
	done := make(chan struct{})
	go func() {
		bus.Publish(&Event{Type: TypeTaskStarted})
		bus.Publish(&Event{Type: TypeTaskCompleted})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	ev := <-ch
	assert.Equal(t, TypeTaskStarted, ev.Type)
	select {
	case extra := <-ch:
		t.Fatalf("expected dropped event, got %v", extra.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")

	// Publishing after unsubscribe must not panic.
	bus.Publish(&Event{Type: TypeTaskStarted})
}

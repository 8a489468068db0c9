package server

import (
	"strings"

	"golang.org/x/net/websocket"

	"github.com/intentlab/intentd/internal/eventbus"
)

// newEventsHandler streams bus events to a WebSocket client. The client can
// narrow the stream with ?session_id= and ?types= (comma separated event
// types); an empty filter forwards everything.
func newEventsHandler(bus *eventbus.Bus) websocket.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()

		r := ws.Request()
		ctx := r.Context()
		sessionID := r.URL.Query().Get("session_id")

		typeFilter := make(map[eventbus.Type]struct{})
		if raw := r.URL.Query().Get("types"); raw != "" {
			for _, t := range strings.Split(raw, ",") {
				typeFilter[eventbus.Type(strings.TrimSpace(t))] = struct{}{}
			}
		}

		subID, ch := bus.Subscribe(64)
		defer bus.Unsubscribe(subID)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				if len(typeFilter) > 0 {
					if _, match := typeFilter[event.Type]; !match {
						continue
					}
				}
				if sessionID != "" && event.SessionID != sessionID {
					continue
				}
				if err := websocket.JSON.Send(ws, event); err != nil {
					return
				}
			}
		}
	})
}

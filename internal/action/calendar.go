package action

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

func (s *Simulator) CheckCalendarAvailability(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := s.wait(ctx, 3); err != nil {
		return nil, err
	}
	// The simulated calendar is always free.
	return map[string]any{
		"available": true,
		"date":      params["date"],
		"time":      params["time"],
		"duration":  params["duration"],
		"conflicts": []any{},
	}, nil
}

func (s *Simulator) CreateCalendarEvent(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := s.wait(ctx, 4); err != nil {
		return nil, err
	}
	participants := params["participants"]
	if participants == nil {
		participants = []string{}
	}
	return map[string]any{
		"created":      true,
		"event_id":     "evt_" + strings.ToLower(ulid.Make().String()),
		"date":         params["date"],
		"time":         params["time"],
		"duration":     params["duration"],
		"participants": participants,
	}, nil
}

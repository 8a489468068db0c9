package action

import "context"

func (s *Simulator) RequestClarification(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The planner emits []string, but normalize a bare string too.
	var missing []string
	switch v := params["missing"].(type) {
	case []string:
		missing = v
	case string:
		missing = []string{v}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				missing = append(missing, s)
			}
		}
	}
	if missing == nil {
		missing = []string{}
	}
	return map[string]any{
		"requires_clarification": true,
		"missing_parameters":     missing,
	}, nil
}

func (s *Simulator) UnsupportedIntent(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]any{
		"supported":     false,
		"original_text": params["original_text"],
	}, nil
}

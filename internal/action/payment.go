package action

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

func (s *Simulator) VerifyPaymentDetails(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := s.wait(ctx, 2); err != nil {
		return nil, err
	}
	return map[string]any{
		"verified":       true,
		"amount":         params["amount"],
		"recipient":      params["recipient"],
		"payment_method": params["payment_method"],
		"fee":            0.0,
	}, nil
}

// ConfirmTransaction is a placeholder step: the binding confirmation is the
// approval gate the executor runs before dispatch.
func (s *Simulator) ConfirmTransaction(ctx context.Context, _ map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]any{"confirmed": true}, nil
}

func (s *Simulator) ExecuteTransaction(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := s.wait(ctx, 5); err != nil {
		return nil, err
	}
	return map[string]any{
		"success":        true,
		"transaction_id": "tx_" + strings.ToLower(ulid.Make().String()),
		"amount":         params["amount"],
		"recipient":      params["recipient"],
		"payment_method": params["payment_method"],
		"timestamp":      time.Now().Format(time.RFC3339),
	}, nil
}

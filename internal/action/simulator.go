package action

import (
	"context"
	"time"
)

// Simulator provides the built-in short-latency effectors: device, calendar,
// payment and analytics connectors plus the clarification and fallback
// utilities. Real connectors would replace these handler by handler; the
// executor is handler-agnostic.
type Simulator struct {
	latency       time.Duration
	installedApps map[string]struct{}
}

type SimulatorOption func(*Simulator)

// WithLatency scales the simulated I/O delay. Zero (the test default) makes
// every handler return immediately.
func WithLatency(unit time.Duration) SimulatorOption {
	return func(s *Simulator) {
		s.latency = unit
	}
}

func WithInstalledApps(apps ...string) SimulatorOption {
	return func(s *Simulator) {
		s.installedApps = make(map[string]struct{}, len(apps))
		for _, app := range apps {
			s.installedApps[app] = struct{}{}
		}
	}
}

func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		latency: 100 * time.Millisecond,
	}
	WithInstalledApps("calendar", "maps", "messages", "email", "photos", "camera")(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterAll wires every simulated handler into r.
func (s *Simulator) RegisterAll(r *Registry) error {
	handlers := map[string]Handler{
		"check_app_installed": s.CheckAppInstalled,
		"launch_app":          s.LaunchApp,

		"check_calendar_availability": s.CheckCalendarAvailability,
		"create_calendar_event":       s.CreateCalendarEvent,

		"verify_payment_details": s.VerifyPaymentDetails,
		"confirm_transaction":    s.ConfirmTransaction,
		"execute_transaction":    s.ExecuteTransaction,

		"fetch_analysis_data":      s.FetchAnalysisData,
		"generate_analysis":        s.GenerateAnalysis,
		"present_analysis_results": s.PresentAnalysisResults,

		"request_clarification": s.RequestClarification,
		"unsupported_intent":    s.UnsupportedIntent,
	}
	for name, h := range handlers {
		if err := r.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

// wait simulates connector latency of n units, honoring cancellation.
func (s *Simulator) wait(ctx context.Context, n int) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(n) * s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

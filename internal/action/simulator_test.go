package action

import (
	"context"
	"strings"
	"testing"
)

func newTestSimulator() *Simulator {
	return NewSimulator(WithLatency(0))
}

func TestRegisterAllCoversPlannerActions(t *testing.T) {
	r := NewRegistry()
	if err := newTestSimulator().RegisterAll(r); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	for _, name := range []string{
		"check_app_installed", "launch_app",
		"check_calendar_availability", "create_calendar_event",
		"verify_payment_details", "confirm_transaction", "execute_transaction",
		"fetch_analysis_data", "generate_analysis", "present_analysis_results",
		"request_clarification", "unsupported_intent",
	} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("action %s not registered", name)
		}
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, map[string]any) (map[string]any, error) { return nil, nil }
	if err := r.Register("x", noop); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.Register("x", noop); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestCheckAppInstalled(t *testing.T) {
	s := newTestSimulator()

	out, err := s.CheckAppInstalled(context.Background(), map[string]any{"app_name": "maps"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out["installed"] != true {
		t.Errorf("expected maps installed, got %v", out)
	}

	out, err = s.CheckAppInstalled(context.Background(), map[string]any{"app_name": "spreadsheets"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out["installed"] != false {
		t.Errorf("expected spreadsheets not installed, got %v", out)
	}
}

func TestLaunchAppNotInstalled(t *testing.T) {
	s := newTestSimulator()

	_, err := s.LaunchApp(context.Background(), map[string]any{"app_name": "spreadsheets"})
	if err == nil {
		t.Fatal("expected error launching an uninstalled app")
	}
	if !strings.Contains(err.Error(), "is not installed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreateCalendarEvent(t *testing.T) {
	out, err := newTestSimulator().CreateCalendarEvent(context.Background(), map[string]any{
		"date": "tomorrow",
		"time": "3pm",
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out["created"] != true {
		t.Errorf("expected created, got %v", out)
	}
	eventID, _ := out["event_id"].(string)
	if !strings.HasPrefix(eventID, "evt_") {
		t.Errorf("unexpected event id: %q", eventID)
	}
}

func TestExecuteTransaction(t *testing.T) {
	out, err := newTestSimulator().ExecuteTransaction(context.Background(), map[string]any{
		"amount":    50.0,
		"recipient": "alice",
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out["success"] != true {
		t.Errorf("expected success, got %v", out)
	}
	txID, _ := out["transaction_id"].(string)
	if !strings.HasPrefix(txID, "tx_") {
		t.Errorf("unexpected transaction id: %q", txID)
	}
}

func TestGenerateAnalysisByCategory(t *testing.T) {
	out, err := newTestSimulator().GenerateAnalysis(context.Background(), map[string]any{
		"metric":   "sales",
		"grouping": "category",
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	byCategory, _ := out["by_category"].(map[string]int)
	if len(byCategory) == 0 {
		t.Error("expected per-category totals")
	}
	total, _ := out["total"].(int)
	sum := 0
	for _, v := range byCategory {
		sum += v
	}
	if sum != total {
		t.Errorf("category totals %d do not add up to total %d", sum, total)
	}
}

func TestPresentAnalysisResultsFormat(t *testing.T) {
	s := newTestSimulator()

	out, err := s.PresentAnalysisResults(context.Background(), map[string]any{"metric": "sales", "format": "chart"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	instructions, _ := out["rendering_instructions"].(map[string]any)
	if instructions["chart_type"] != "bar" {
		t.Errorf("expected bar chart, got %v", instructions["chart_type"])
	}

	out, err = s.PresentAnalysisResults(context.Background(), map[string]any{"metric": "sales", "format": "list"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	instructions, _ = out["rendering_instructions"].(map[string]any)
	if instructions["chart_type"] != "table" {
		t.Errorf("expected table, got %v", instructions["chart_type"])
	}
}

func TestRequestClarificationNormalizesMissing(t *testing.T) {
	s := newTestSimulator()

	cases := []struct {
		name    string
		missing any
		want    int
	}{
		{"string slice", []string{"date", "time"}, 2},
		{"bare string", "time", 1},
		{"any slice", []any{"date"}, 1},
		{"absent", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := s.RequestClarification(context.Background(), map[string]any{"missing": tc.missing})
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			got, _ := out["missing_parameters"].([]string)
			if len(got) != tc.want {
				t.Errorf("expected %d missing parameters, got %v", tc.want, got)
			}
		})
	}
}

func TestHandlersHonorCancelledContext(t *testing.T) {
	s := NewSimulator() // default latency, so wait must select on ctx
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.CheckAppInstalled(ctx, map[string]any{"app_name": "maps"}); err == nil {
		t.Error("expected context error")
	}
	if _, err := s.FetchAnalysisData(ctx, map[string]any{}); err == nil {
		t.Error("expected context error")
	}
}

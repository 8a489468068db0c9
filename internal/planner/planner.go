package planner

import (
	"fmt"
	"strings"

	"github.com/intentlab/intentd/internal/intent"
	"github.com/intentlab/intentd/internal/task"
)

// Planner turns a parsed intent into an ordered task plan. Planning is pure:
// same intent in, structurally identical plan out (ids aside), no I/O.
type Planner struct {
	templates map[string]templateFunc
}

type templateFunc func(*intent.ParsedIntent) []*task.Task

func New() *Planner {
	p := &Planner{}
	p.templates = map[string]templateFunc{
		intent.IntentAppSwitch:   p.planAppSwitch,
		intent.IntentCalendar:    p.planCalendar,
		intent.IntentTransaction: p.planTransaction,
		intent.IntentAnalysis:    p.planAnalysis,
	}
	return p
}

// Plan selects the template for the intent. An unregistered intent yields a
// single fallback task rather than an error; planning failures are never
// surfaced to the caller.
func (p *Planner) Plan(pi *intent.ParsedIntent) []*task.Task {
	if tmpl, ok := p.templates[pi.Intent]; ok {
		return tmpl(pi)
	}
	return []*task.Task{task.New(
		"unsupported_intent",
		map[string]any{"original_text": pi.OriginalText},
		"I'm not sure how to handle this request yet.",
	)}
}

// clarificationPlan short-circuits the template: the whole plan collapses to
// one request_clarification task listing the absent fields.
func clarificationPlan(missing []string) []*task.Task {
	return []*task.Task{task.New(
		"request_clarification",
		map[string]any{"missing": missing},
		fmt.Sprintf("I need more information: %s", strings.Join(missing, ", ")),
	)}
}

func missingFields(params map[string]any, required ...string) []string {
	var missing []string
	for _, field := range required {
		if v, ok := params[field]; !ok || v == nil || v == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func (p *Planner) planAppSwitch(pi *intent.ParsedIntent) []*task.Task {
	if missing := missingFields(pi.Parameters, "app_name"); missing != nil {
		return clarificationPlan(missing)
	}
	appName := pi.Parameters["app_name"]

	return []*task.Task{
		task.New(
			"check_app_installed",
			map[string]any{"app_name": appName},
			fmt.Sprintf("Checking if %v is installed", appName),
		),
		task.New(
			"launch_app",
			map[string]any{"app_name": appName},
			fmt.Sprintf("Opening %v", appName),
		),
	}
}

func (p *Planner) planCalendar(pi *intent.ParsedIntent) []*task.Task {
	if missing := missingFields(pi.Parameters, "date", "time"); missing != nil {
		return clarificationPlan(missing)
	}

	date := pi.Parameters["date"]
	timeOfDay := pi.Parameters["time"]
	duration := stringOrDefault(pi.Parameters, "duration", "1 hour")
	participants, _ := pi.Parameters["participants"].([]string)
	if participants == nil {
		participants = []string{}
	}

	return []*task.Task{
		task.New(
			"check_calendar_availability",
			map[string]any{
				"date":     date,
				"time":     timeOfDay,
				"duration": duration,
			},
			fmt.Sprintf("Checking availability on %v at %v", date, timeOfDay),
		),
		task.New(
			"create_calendar_event",
			map[string]any{
				"date":         date,
				"time":         timeOfDay,
				"duration":     duration,
				"participants": participants,
			},
			fmt.Sprintf("Creating calendar event on %v at %v", date, timeOfDay),
		),
	}
}

// planTransaction emits the ordered verify -> confirm -> execute sequence.
// Later steps assume the earlier ones ran, but each task's params come from
// the parsed parameters, not from prior task output.
func (p *Planner) planTransaction(pi *intent.ParsedIntent) []*task.Task {
	if missing := missingFields(pi.Parameters, "amount", "recipient"); missing != nil {
		return clarificationPlan(missing)
	}

	amount := pi.Parameters["amount"]
	recipient := pi.Parameters["recipient"]
	paymentMethod := stringOrDefault(pi.Parameters, "payment_method", "default")

	// Each task gets its own params map so no task aliases another's.
	params := func() map[string]any {
		return map[string]any{
			"amount":         amount,
			"recipient":      recipient,
			"payment_method": paymentMethod,
		}
	}

	return []*task.Task{
		task.New(
			"verify_payment_details",
			params(),
			fmt.Sprintf("Verifying payment details for %v to %v", amount, recipient),
		),
		task.New(
			"confirm_transaction",
			params(),
			fmt.Sprintf("Confirming payment of %v to %v", amount, recipient),
		),
		task.New(
			"execute_transaction",
			params(),
			fmt.Sprintf("Sending %v to %v", amount, recipient),
		),
	}
}

func (p *Planner) planAnalysis(pi *intent.ParsedIntent) []*task.Task {
	metric := pi.Parameters["metric"]
	timeRange := stringOrDefault(pi.Parameters, "time_range", "last week")
	grouping := pi.Parameters["grouping"]

	return []*task.Task{
		task.New(
			"fetch_analysis_data",
			map[string]any{
				"metric":     metric,
				"time_range": timeRange,
				"grouping":   grouping,
			},
			fmt.Sprintf("Fetching data for %v analysis over %v", metric, timeRange),
		),
		task.New(
			"generate_analysis",
			map[string]any{
				"metric":     metric,
				"time_range": timeRange,
				"grouping":   grouping,
			},
			fmt.Sprintf("Generating analysis for %v", metric),
		),
		task.New(
			"present_analysis_results",
			map[string]any{
				"metric": metric,
				"format": "chart",
			},
			fmt.Sprintf("Presenting %v analysis results", metric),
		),
	}
}

func stringOrDefault(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

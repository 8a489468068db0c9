package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// RuleParser is a keyword/regex language-understanding fallback. It stands in
// for the model-backed parser the transport talks to in production; the
// planner only sees the ParsedIntent contract either way.
type RuleParser struct {
	keywords map[string][]string
}

func NewRuleParser() *RuleParser {
	return &RuleParser{
		keywords: map[string][]string{
			IntentAppSwitch:   {"open", "switch to", "launch", "start"},
			IntentCalendar:    {"schedule", "appointment", "meeting", "reminder"},
			IntentTransaction: {"send", "pay", "transfer", "purchase"},
			IntentAnalysis:    {"analyze", "report", "metrics", "statistics"},
		},
	}
}

// intentOrder keeps classification deterministic when several keyword
// families match.
var intentOrder = []string{IntentAppSwitch, IntentCalendar, IntentTransaction, IntentAnalysis}

func (p *RuleParser) Parse(text string) (*ParsedIntent, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))

	name, confidence := p.detectIntent(normalized)
	entities := extractEntities(normalized)
	parameters := extractParameters(name, normalized)

	return &ParsedIntent{
		OriginalText: text,
		Intent:       name,
		Confidence:   confidence,
		Entities:     entities,
		Parameters:   parameters,
	}, nil
}

func (p *RuleParser) detectIntent(text string) (string, float64) {
	for _, name := range intentOrder {
		for _, phrase := range p.keywords[name] {
			if strings.Contains(text, phrase) {
				return name, 0.85
			}
		}
	}
	return IntentUnknown, 0.0
}

var (
	amountRe      = regexp.MustCompile(`\$(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?) dollars`)
	timeRe        = regexp.MustCompile(`\bat (\d{1,2}(?::\d{2})?\s?(?:am|pm)?)\b`)
	dateRe        = regexp.MustCompile(`\b(today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	durationRe    = regexp.MustCompile(`\bfor (\d+ (?:minutes?|hours?))\b`)
	recipientRe   = regexp.MustCompile(`\bto (\w+)\b`)
	participantRe = regexp.MustCompile(`\bwith (\w+)\b`)
	timeRangeRe   = regexp.MustCompile(`\b(last|this|past) (day|week|month|quarter|year)\b`)
	groupingRe    = regexp.MustCompile(`\bby (category|region|day|week|month)\b`)
)

var knownApps = []string{
	"calendar", "email", "messages", "maps", "photos", "camera",
	"weather", "notes", "reminders", "clock", "calculator",
}

var knownMetrics = []string{"sales", "revenue", "spending", "expenses", "usage", "traffic"}

var paymentMethods = []string{"card", "cash", "paypal", "bank transfer"}

// extractEntities collects everything recognizable regardless of intent; the
// planner only reads Parameters, Entities are kept for observability.
func extractEntities(text string) map[string]any {
	entities := make(map[string]any)
	if app := firstContained(text, knownApps); app != "" {
		entities["app"] = app
	}
	if m := amountRe.FindStringSubmatch(text); m != nil {
		entities["amount"] = pickGroup(m)
	}
	if m := dateRe.FindString(text); m != "" {
		entities["date"] = m
	}
	if m := timeRe.FindStringSubmatch(text); m != nil {
		entities["time"] = m[1]
	}
	return entities
}

func extractParameters(name, text string) map[string]any {
	parameters := make(map[string]any)

	switch name {
	case IntentAppSwitch:
		if app := firstContained(text, knownApps); app != "" {
			parameters["app_name"] = app
		}
	case IntentCalendar:
		if m := dateRe.FindString(text); m != "" {
			parameters["date"] = m
		}
		if m := timeRe.FindStringSubmatch(text); m != nil {
			parameters["time"] = strings.TrimSpace(m[1])
		}
		if m := durationRe.FindStringSubmatch(text); m != nil {
			parameters["duration"] = m[1]
		}
		if m := participantRe.FindAllStringSubmatch(text, -1); m != nil {
			participants := make([]string, 0, len(m))
			for _, match := range m {
				participants = append(participants, match[1])
			}
			parameters["participants"] = participants
		}
	case IntentTransaction:
		if m := amountRe.FindStringSubmatch(text); m != nil {
			if amount, err := strconv.ParseFloat(pickGroup(m), 64); err == nil {
				parameters["amount"] = amount
			}
		}
		if m := recipientRe.FindStringSubmatch(text); m != nil {
			parameters["recipient"] = m[1]
		}
		if method := firstContained(text, paymentMethods); method != "" {
			parameters["payment_method"] = method
		}
	case IntentAnalysis:
		if metric := firstContained(text, knownMetrics); metric != "" {
			parameters["metric"] = metric
		}
		if m := timeRangeRe.FindString(text); m != "" {
			parameters["time_range"] = m
		}
		if m := groupingRe.FindStringSubmatch(text); m != nil {
			parameters["grouping"] = m[1]
		}
	}

	return parameters
}

func firstContained(text string, candidates []string) string {
	for _, c := range candidates {
		if strings.Contains(text, c) {
			return c
		}
	}
	return ""
}

// pickGroup returns whichever alternative of the amount pattern matched.
func pickGroup(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

package intent

// ParsedIntent is the structured output of language understanding: the
// classified intent, a confidence score, the raw entities and the parameters
// extracted for that intent family. It is immutable once produced.
type ParsedIntent struct {
	OriginalText string         `json:"original_text" yaml:"original_text"`
	Intent       string         `json:"intent" yaml:"intent"`
	Confidence   float64        `json:"confidence" yaml:"confidence"`
	Entities     map[string]any `json:"entities" yaml:"entities"`
	Parameters   map[string]any `json:"parameters" yaml:"parameters"`
}

// Intent names understood by the planner. Anything else falls back to an
// unsupported_intent plan.
const (
	IntentAppSwitch   = "app_switch"
	IntentCalendar    = "calendar"
	IntentTransaction = "transaction"
	IntentAnalysis    = "analysis"
	IntentUnknown     = "unknown"
)

// Parser converts raw text into a ParsedIntent. The daemon ships a rule-based
// implementation; a model-backed one can be swapped in behind this interface.
type Parser interface {
	Parse(text string) (*ParsedIntent, error)
}

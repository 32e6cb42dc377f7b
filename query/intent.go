package query

import "strings"

// Intent is the coarse purpose of a question.
type Intent string

const (
	IntentCalculation Intent = "calculation"
	IntentRetrieval   Intent = "retrieval"
	IntentDefinition  Intent = "definition"
	IntentGeneral     Intent = "general"
)

// intentKeywords is checked in order; the first intent with a matching
// keyword wins.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentCalculation, []string{"calculate", "compute", "what is the", "dpi", "irr", "tvpi", "moic", "pic"}},
	{IntentRetrieval, []string{"show", "list", "get", "find", "retrieve", "capital call", "distribution"}},
	{IntentDefinition, []string{"what is", "define", "explain", "meaning"}},
}

// ClassifyIntent matches case-insensitive substrings of query against
// each intent's keywords.
func ClassifyIntent(query string) Intent {
	q := strings.ToLower(query)
	for _, entry := range intentKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return entry.intent
			}
		}
	}
	return IntentGeneral
}

// needsMetrics reports whether answering the intent uses fund metrics.
func (i Intent) needsMetrics() bool {
	return i == IntentCalculation || i == IntentRetrieval
}

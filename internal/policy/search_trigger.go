package policy

import "strings"

// Trigger terms for time-sensitive intents. Matching is a coarse
// case-insensitive substring check over the whole utterance: no tokenization,
// no negation handling. False positives are acceptable; a wasted search only
// costs one adapter call.
var searchTriggerTerms = []string{
	"weather",
	"forecast",
	"temperature",
	"today's date",
	"what time",
	"what day",
	"tomorrow",
	"news",
	"price of",
	"current",
	"latest",
}

// NeedsSearch reports whether the recognized utterance should be augmented
// with live web-search context before composing the reply prompt.
func NeedsSearch(utterance string) bool {
	u := strings.ToLower(utterance)
	for _, term := range searchTriggerTerms {
		if strings.Contains(u, term) {
			return true
		}
	}
	return false
}

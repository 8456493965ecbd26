package prompt

import (
	"strings"

	"github.com/vdtran/voicebox/internal/history"
)

// The generative service receives the full retained history on every call.
// The exact line order below is a protocol contract with that service; change
// it and replies degrade silently.
const (
	// BrevityInstruction caps reply length; one sentence per line keeps the
	// downstream synthesizer chunking simple.
	BrevityInstruction = "Answer briefly in 1-2 sentences. Keep each sentence on its own line."

	SearchBlockLabel = "Web search results:"

	// NothingFoundPlaceholder stands in when the search ran but produced no
	// usable snippets, so the model knows fresh context was attempted.
	NothingFoundPlaceholder = "Nothing recent found."

	userPrefix      = "User: "
	assistantPrefix = "Assistant: "
	assistantCue    = "Assistant:"

	maxSearchSnippets = 3
)

// Compose builds the exact prompt text for the generative-reply adapter:
// brevity instruction, optional labeled search block, full history as
// user/assistant line pairs, the new utterance, and the trailing assistant cue.
// Deterministic: same inputs, byte-identical output.
func Compose(searchSnippets []string, searchTried bool, turns []history.Turn, utterance string) string {
	var parts []string
	parts = append(parts, BrevityInstruction)

	if searchTried {
		parts = append(parts, SearchBlockLabel)
		snippets := searchSnippets
		if len(snippets) > maxSearchSnippets {
			snippets = snippets[:maxSearchSnippets]
		}
		kept := 0
		for _, s := range snippets {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			parts = append(parts, s)
			kept++
		}
		if kept == 0 {
			parts = append(parts, NothingFoundPlaceholder)
		}
	}

	for _, turn := range turns {
		parts = append(parts, userPrefix+turn.UserUtterance)
		parts = append(parts, assistantPrefix+turn.AssistantReply)
	}

	parts = append(parts, userPrefix+utterance)
	parts = append(parts, assistantCue)

	return strings.Join(parts, "\n")
}

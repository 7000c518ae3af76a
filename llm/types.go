// Package llm provides intent recognition backends: a deterministic
// local keyword matcher and an OpenAI-compatible chat-completions
// client that degrades to the local matcher on failure.
package llm

import "context"

// IntentUnknown is the sentinel intent name returned when no intent
// matches an utterance.
const IntentUnknown = "unknown"

// Intent describes one recognizable intent to a recognizer.
type Intent struct {
	Name        string
	Patterns    []string
	Description string
	Examples    []string
}

// Context is a snapshot of the dialogue at recognition time.
type Context struct {
	CurrentState string
	Variables    map[string]any
}

// Result is the outcome of recognizing one utterance.
type Result struct {
	// Intent is the matched intent name, or IntentUnknown.
	Intent string

	// Confidence is in [0, 1].
	Confidence float64

	// Entities are key facts extracted from the utterance.
	Entities map[string]string

	// Reasoning is a free-text explanation of the decision.
	Reasoning string
}

// Recognizer maps an utterance to one of a set of intents.
type Recognizer interface {
	Recognize(ctx context.Context, utterance string, intents []Intent, dialogue *Context) (*Result, error)
}

package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Local is a deterministic keyword-and-example matcher. It is the
// default recognizer and the degradation path when a remote backend
// fails. It never blocks and never returns an error.
type Local struct{}

// Recognize scores each intent against the utterance: one point per
// pattern that occurs as a case-insensitive substring, plus half a
// point per overlapping word between the utterance and each example.
// The strictly highest positive score wins; ties keep the first-seen
// intent. Confidence is score/5 capped at 1.
func (Local) Recognize(_ context.Context, utterance string, intents []Intent, _ *Context) (*Result, error) {
	lower := strings.ToLower(utterance)
	inputWords := wordSet(lower)

	var bestName string
	var bestScore float64

	for _, intent := range intents {
		var score float64

		for _, pattern := range intent.Patterns {
			if strings.Contains(lower, strings.ToLower(pattern)) {
				score++
			}
		}

		for _, example := range intent.Examples {
			overlap := 0
			for word := range wordSet(strings.ToLower(example)) {
				if _, ok := inputWords[word]; ok {
					overlap++
				}
			}
			score += 0.5 * float64(overlap)
		}

		if score > bestScore {
			bestScore = score
			bestName = intent.Name
		}
	}

	if bestName == "" || bestScore <= 0 {
		return &Result{
			Intent:    IntentUnknown,
			Entities:  map[string]string{},
			Reasoning: "no intent matched",
		}, nil
	}

	return &Result{
		Intent:     bestName,
		Confidence: math.Min(bestScore/5, 1.0),
		Entities:   map[string]string{},
		Reasoning:  fmt.Sprintf("keyword match (score %.2f)", bestScore),
	}, nil
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

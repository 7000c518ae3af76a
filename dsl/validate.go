package dsl

import (
	"fmt"
	"strings"
)

// ValidationError provides detailed script validation errors.
type ValidationError struct {
	Line    int
	Field   string
	Message string
	Hint    string
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Hint != "" {
		msg = msg + "\n  -> " + e.Hint
	}
	return msg
}

// Validate checks a parsed program for structural problems the parser
// cannot see: duplicate names, transitions that reference unknown
// intents or states, and bots with no states. The first problem found
// is returned.
func Validate(program *Program) error {
	for _, bot := range program.Bots {
		if err := validateBot(bot); err != nil {
			return err
		}
	}
	return nil
}

func validateBot(bot *BotDef) error {
	if len(bot.States) == 0 {
		return &ValidationError{
			Field:   fmt.Sprintf("bot %q", bot.Name),
			Message: "at least one state must be defined",
		}
	}

	intentNames := make([]string, 0, len(bot.Intents))
	seenIntents := map[string]bool{}
	for _, intent := range bot.Intents {
		if seenIntents[intent.Name] {
			return &ValidationError{
				Line:    intent.NodePos.Line,
				Field:   fmt.Sprintf("intent %q", intent.Name),
				Message: "duplicate intent name",
			}
		}
		seenIntents[intent.Name] = true
		intentNames = append(intentNames, intent.Name)
	}

	stateNames := make([]string, 0, len(bot.States))
	seenStates := map[string]bool{}
	for _, state := range bot.States {
		if seenStates[state.Name] {
			return &ValidationError{
				Line:    state.NodePos.Line,
				Field:   fmt.Sprintf("state %q", state.Name),
				Message: "duplicate state name",
			}
		}
		seenStates[state.Name] = true
		stateNames = append(stateNames, state.Name)
	}

	for _, state := range bot.States {
		for i := range state.Transitions {
			rule := &state.Transitions[i]
			if !seenIntents[rule.Intent] {
				return &ValidationError{
					Line:    rule.NodePos.Line,
					Field:   fmt.Sprintf("state %q", state.Name),
					Message: fmt.Sprintf("unknown intent %q", rule.Intent),
					Hint:    didYouMean(rule.Intent, intentNames),
				}
			}
			if !seenStates[rule.Target] {
				return &ValidationError{
					Line:    rule.NodePos.Line,
					Field:   fmt.Sprintf("state %q", state.Name),
					Message: fmt.Sprintf("unknown target state %q", rule.Target),
					Hint:    didYouMean(rule.Target, stateNames),
				}
			}
		}
	}

	return nil
}

func didYouMean(target string, candidates []string) string {
	best := findSimilar(target, candidates)
	if best == "" {
		return ""
	}
	return fmt.Sprintf("Did you mean %q?", best)
}

// findSimilar picks the candidate most similar to the target name.
func findSimilar(target string, candidates []string) string {
	target = strings.ToLower(target)
	best := ""
	bestScore := 0

	for _, c := range candidates {
		score := similarity(target, strings.ToLower(c))
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	return best
}

// similarity returns a simple similarity score.
func similarity(a, b string) int {
	if a == b {
		return 100
	}

	score := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			score += 2
		} else {
			break
		}
	}

	if strings.Contains(b, a) || strings.Contains(a, b) {
		score += 10
	}

	return score
}

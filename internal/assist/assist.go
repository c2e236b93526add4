// Package assist defines the writing-assistant capability and a placeholder
// generator that returns canned suggestions.
package assist

import (
	"context"
	"fmt"
)

// Supported actions.
const (
	ActionImprove   = "improve"
	ActionRewrite   = "rewrite"
	ActionExpand    = "expand"
	ActionCondense  = "condense"
	ActionGrammar   = "grammar"
	ActionHeadlines = "headlines"
)

// NoSuggestion is returned for unknown actions.
const NoSuggestion = "No suggestion available"

// Suggestion is the generator's answer. Headline-style actions fill
// Alternatives; every other action fills Text.
type Suggestion struct {
	Action       string
	Text         string
	Alternatives []string
}

// Value returns the suggestion in its wire form: the alternatives list when
// present, otherwise the text.
func (s Suggestion) Value() any {
	if s.Alternatives != nil {
		return s.Alternatives
	}
	return s.Text
}

// Generator produces writing suggestions for a piece of text.
type Generator interface {
	Generate(ctx context.Context, action, text string, opts map[string]string) (Suggestion, error)
}

// Placeholder answers every request with a fixed template and never fails.
type Placeholder struct{}

// Generate implements Generator.
func (Placeholder) Generate(ctx context.Context, action, text string, opts map[string]string) (Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return Suggestion{}, err
	}

	s := Suggestion{Action: action}
	switch action {
	case ActionImprove:
		s.Text = fmt.Sprintf("Suggested improvement for: %s...", prefix(text, 100))
	case ActionRewrite:
		tone := opts["tone"]
		if tone == "" {
			tone = "professional"
		}
		s.Text = fmt.Sprintf("Rewritten version with %s tone", tone)
	case ActionExpand:
		s.Text = "Expanded content adding more detail and context..."
	case ActionCondense:
		s.Text = "Condensed version to make it more concise..."
	case ActionGrammar:
		s.Text = fmt.Sprintf("Grammar fixes applied to: %s...", prefix(text, 100))
	case ActionHeadlines:
		head := prefix(text, 30)
		s.Alternatives = make([]string, 0, 3)
		for i := 1; i <= 3; i++ {
			s.Alternatives = append(s.Alternatives, fmt.Sprintf("Alternative headline %d for: %s...", i, head))
		}
	default:
		s.Text = NoSuggestion
	}
	return s, nil
}

// prefix returns at most n runes of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

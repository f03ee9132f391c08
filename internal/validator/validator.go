package validator

import (
	"fmt"
	"regexp"
	"strings"

	"bot-tester/internal/chat"
)

// Result is the outcome of one validator over one collected response
// sequence. Details carries structured diagnostics for failed expectations,
// such as the button texts that were actually found.
type Result struct {
	Passed  bool           `json:"passed"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Validator is a pure predicate over the collected response sequence of one
// test. A failed expectation is a failed Result, never an error; only a
// malformed expectation fails at construction time.
type Validator interface {
	Validate(responses []chat.Message) Result
}

// Contains checks that any response message contains a substring.
type Contains struct {
	Text          string
	CaseSensitive bool
}

func (v Contains) Validate(responses []chat.Message) Result {
	needle := v.Text
	if !v.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	for _, msg := range responses {
		if msg.Text == "" {
			continue
		}
		haystack := msg.Text
		if !v.CaseSensitive {
			haystack = strings.ToLower(haystack)
		}
		if strings.Contains(haystack, needle) {
			return Result{
				Passed:  true,
				Message: fmt.Sprintf("Found text %q in response", v.Text),
			}
		}
	}

	return Result{
		Passed:  false,
		Message: fmt.Sprintf("Text %q not found in response", v.Text),
		Details: map[string]any{"expected": v.Text, "got": responseTexts(responses)},
	}
}

// MatchesPattern checks that any response message matches a regular
// expression.
type MatchesPattern struct {
	re *regexp.Regexp
}

// NewMatchesPattern compiles pattern with optional inline flags. Flags is a
// string of Go flag letters (i, m, s, U) applied to the whole pattern.
func NewMatchesPattern(pattern, flags string) (MatchesPattern, error) {
	if flags != "" {
		for _, f := range flags {
			switch f {
			case 'i', 'm', 's', 'U':
			default:
				return MatchesPattern{}, fmt.Errorf("unknown regexp flag %q", string(f))
			}
		}
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return MatchesPattern{}, fmt.Errorf("invalid pattern: %w", err)
	}
	return MatchesPattern{re: re}, nil
}

func (v MatchesPattern) Validate(responses []chat.Message) Result {
	for _, msg := range responses {
		if msg.Text != "" && v.re.MatchString(msg.Text) {
			return Result{
				Passed:  true,
				Message: fmt.Sprintf("Response matches pattern %q", v.re.String()),
			}
		}
	}

	return Result{
		Passed:  false,
		Message: fmt.Sprintf("Response doesn't match pattern %q", v.re.String()),
		Details: map[string]any{"pattern": v.re.String(), "got": responseTexts(responses)},
	}
}

// HasButtons checks that some response message carries an inline keyboard
// satisfying the configured constraints.
type HasButtons struct {
	ButtonTexts []string
	MinButtons  int
}

func (v HasButtons) Validate(responses []chat.Message) Result {
	for _, msg := range responses {
		buttons := msg.Buttons()
		if len(buttons) == 0 {
			continue
		}

		texts := make([]string, len(buttons))
		for i, btn := range buttons {
			texts[i] = btn.Text
		}

		if v.MinButtons > 0 && len(buttons) < v.MinButtons {
			return Result{
				Passed:  false,
				Message: fmt.Sprintf("Expected at least %d buttons, got %d", v.MinButtons, len(buttons)),
				Details: map[string]any{"expected_min": v.MinButtons, "found": len(buttons)},
			}
		}

		if len(v.ButtonTexts) > 0 {
			var missing []string
			for _, want := range v.ButtonTexts {
				found := false
				for _, have := range texts {
					if have == want {
						found = true
						break
					}
				}
				if !found {
					missing = append(missing, want)
				}
			}
			if len(missing) > 0 {
				return Result{
					Passed:  false,
					Message: fmt.Sprintf("Missing expected buttons: %v", missing),
					Details: map[string]any{"expected": v.ButtonTexts, "found": texts},
				}
			}
		}

		return Result{
			Passed:  true,
			Message: fmt.Sprintf("Found %d button(s)", len(buttons)),
			Details: map[string]any{"buttons": texts},
		}
	}

	return Result{
		Passed:  false,
		Message: "Response has no inline buttons",
	}
}

// ResponseCount checks the number of collected messages against optional
// min, max, or exact bounds.
type ResponseCount struct {
	Min   *int
	Max   *int
	Exact *int
}

func (v ResponseCount) Validate(responses []chat.Message) Result {
	count := len(responses)

	if v.Exact != nil && count != *v.Exact {
		return Result{
			Passed:  false,
			Message: fmt.Sprintf("Expected exactly %d response(s), got %d", *v.Exact, count),
		}
	}
	if v.Min != nil && count < *v.Min {
		return Result{
			Passed:  false,
			Message: fmt.Sprintf("Expected at least %d response(s), got %d", *v.Min, count),
		}
	}
	if v.Max != nil && count > *v.Max {
		return Result{
			Passed:  false,
			Message: fmt.Sprintf("Expected at most %d response(s), got %d", *v.Max, count),
		}
	}

	return Result{
		Passed:  true,
		Message: fmt.Sprintf("Response count (%d) is valid", count),
	}
}

// NotEmpty checks that at least one collected message has text, media, or
// buttons.
type NotEmpty struct{}

func (NotEmpty) Validate(responses []chat.Message) Result {
	if len(responses) == 0 {
		return Result{
			Passed:  false,
			Message: "No response received",
		}
	}

	for _, msg := range responses {
		if msg.Text != "" || msg.HasMedia || len(msg.Keyboard) > 0 {
			return Result{
				Passed:  true,
				Message: "Response has content",
			}
		}
	}

	return Result{
		Passed:  false,
		Message: "Response is empty",
	}
}

func responseTexts(responses []chat.Message) []string {
	var texts []string
	for _, msg := range responses {
		if msg.Text != "" {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

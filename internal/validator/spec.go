package validator

import (
	"fmt"
)

// Spec is one declarative expectation from a scenario file, keyed by
// validator kind. Exactly one kind key must be set.
type Spec struct {
	Contains      *string `yaml:"contains,omitempty" json:"contains,omitempty"`
	CaseSensitive bool    `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`

	Matches *string `yaml:"matches,omitempty" json:"matches,omitempty"`
	Flags   string  `yaml:"flags,omitempty" json:"flags,omitempty"`

	HasButtons  *bool    `yaml:"has_buttons,omitempty" json:"has_buttons,omitempty"`
	ButtonTexts []string `yaml:"button_texts,omitempty" json:"button_texts,omitempty"`
	MinButtons  int      `yaml:"min_buttons,omitempty" json:"min_buttons,omitempty"`

	ResponseCount *bool `yaml:"response_count,omitempty" json:"response_count,omitempty"`
	Min           *int  `yaml:"min,omitempty" json:"min,omitempty"`
	Max           *int  `yaml:"max,omitempty" json:"max,omitempty"`
	Exact         *int  `yaml:"exact,omitempty" json:"exact,omitempty"`

	NotEmpty *bool `yaml:"not_empty,omitempty" json:"not_empty,omitempty"`
}

// Kind returns the validator kind this spec selects, or "" when none is set.
func (s Spec) Kind() string {
	switch {
	case s.Contains != nil:
		return "contains"
	case s.Matches != nil:
		return "matches"
	case s.HasButtons != nil:
		return "has_buttons"
	case s.ResponseCount != nil:
		return "response_count"
	case s.NotEmpty != nil:
		return "not_empty"
	default:
		return ""
	}
}

// FromSpec builds a Validator from a declarative spec. A spec that selects
// no known kind, or carries an invalid pattern, is a configuration error.
func FromSpec(spec Spec) (Validator, error) {
	switch {
	case spec.Contains != nil:
		return Contains{Text: *spec.Contains, CaseSensitive: spec.CaseSensitive}, nil

	case spec.Matches != nil:
		return NewMatchesPattern(*spec.Matches, spec.Flags)

	case spec.HasButtons != nil:
		return HasButtons{ButtonTexts: spec.ButtonTexts, MinButtons: spec.MinButtons}, nil

	case spec.ResponseCount != nil:
		return ResponseCount{Min: spec.Min, Max: spec.Max, Exact: spec.Exact}, nil

	case spec.NotEmpty != nil:
		return NotEmpty{}, nil

	default:
		return nil, fmt.Errorf("expectation selects no known validator kind")
	}
}

// FromSpecs builds validators from an ordered expectations list, failing on
// the first malformed entry.
func FromSpecs(specs []Spec) ([]Validator, error) {
	validators := make([]Validator, 0, len(specs))
	for i, spec := range specs {
		v, err := FromSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("expectation %d: %w", i+1, err)
		}
		validators = append(validators, v)
	}
	return validators, nil
}

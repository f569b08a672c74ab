package parser

import (
	"slices"
	"strings"
)

// defaultExclusions are notices the messenger injects into the log itself,
// in English, German and Spanish.
var defaultExclusions = []string{
	"<Medien ausgeschlossen>",
	"Audio weggelassen",
	"Ende-zu-Ende-Verschlüsselung",
	"Media omitted",
	"Audio omitted",
	"image omitted",
	"Missed voice call",
	"Missed video call",
	"end-to-end encrypted",
	"Verpasster Sprachanruf",
	"Verpasster Videoanruf",
	"Media omitida",
	"Audio omitido",
	"Imagen omitida",
	"extremo a extremo",
}

// Exclusions is an ordered list of literal substrings. Any line containing
// one of them is dropped before parsing. Values are immutable; With returns a
// new list.
type Exclusions struct {
	patterns []string
}

// NewExclusions creates an exclusion list. Empty strings are ignored since
// they would match every line.
func NewExclusions(patterns ...string) *Exclusions {
	e := &Exclusions{patterns: make([]string, 0, len(patterns))}
	for _, p := range patterns {
		if p != "" && !slices.Contains(e.patterns, p) {
			e.patterns = append(e.patterns, p)
		}
	}
	return e
}

// DefaultExclusions returns a fresh copy of the built-in system notices.
func DefaultExclusions() *Exclusions {
	return NewExclusions(defaultExclusions...)
}

// With returns a new list with extra appended.
func (e *Exclusions) With(extra ...string) *Exclusions {
	return NewExclusions(append(e.Patterns(), extra...)...)
}

// Matches reports whether line contains any excluded substring.
func (e *Exclusions) Matches(line string) bool {
	if e == nil {
		return false
	}
	for _, p := range e.patterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the substrings in order.
func (e *Exclusions) Patterns() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.patterns)
}

// Len returns the number of substrings.
func (e *Exclusions) Len() int {
	if e == nil {
		return 0
	}
	return len(e.patterns)
}

// Package dateutil turns human date patterns such as "MMMM D, YYYY" into
// formatted dates for the resume page's "last updated" line.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPattern indicates a date pattern that cannot be converted.
var ErrInvalidPattern = errors.New("invalid date pattern")

// MaxPatternLength bounds pattern input.
const MaxPatternLength = 50

// DefaultPattern applies to a bare "auto".
const DefaultPattern = "long"

// tokens maps pattern tokens to Go layout fragments, longest first.
var tokens = []struct{ token, layout string }{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// Presets are named patterns.
var Presets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
	"month":    "MMMM YYYY",
}

// Layout converts a pattern or preset name into a time layout. Text in
// square brackets is copied literally; other characters pass through.
func Layout(pattern string) (string, error) {
	if p, ok := Presets[strings.ToLower(pattern)]; ok {
		pattern = p
	}
	switch {
	case pattern == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidPattern)
	case len(pattern) > MaxPatternLength:
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidPattern, MaxPatternLength)
	}

	var b strings.Builder
	for rest := pattern; rest != ""; {
		if rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed bracket in %q", ErrInvalidPattern, pattern)
			}
			b.WriteString(rest[1:end])
			rest = rest[end+1:]
			continue
		}
		n := 1
		lit := rest[:1]
		for _, t := range tokens {
			if strings.HasPrefix(rest, t.token) {
				n, lit = len(t.token), t.layout
				break
			}
		}
		b.WriteString(lit)
		rest = rest[n:]
	}
	return b.String(), nil
}

// Resolve renders value for the page. "auto" and "auto:PATTERN" format t;
// anything else is returned as written.
func Resolve(value string, t time.Time) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if !strings.HasPrefix(lower, "auto") {
		return value, nil
	}

	pattern := DefaultPattern
	if lower != "auto" {
		p, ok := strings.CutPrefix(strings.TrimSpace(value)[4:], ":")
		if !ok || p == "" {
			return "", fmt.Errorf("%w: %q, use auto or auto:PATTERN", ErrInvalidPattern, value)
		}
		pattern = p
	}

	layout, err := Layout(pattern)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

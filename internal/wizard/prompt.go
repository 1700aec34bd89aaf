package wizard

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind is the kind of answer a prompt expects.
type Kind string

const (
	KindText    Kind = "text"
	KindConfirm Kind = "confirm"
	KindSelect  Kind = "select"
)

// Prompt is the question the wizard is waiting on.
type Prompt struct {
	ID      string
	Kind    Kind
	Label   string
	Help    string
	Options []string
	// Default is used when the answer is empty. Confirm defaults are
	// "true" or "false".
	Default string
	// Path locates the criterion being authored; empty outside a
	// structured definition.
	Path string
}

// normalize resolves an answer against the prompt: empty answers take the
// default, confirm answers become "true" or "false", select answers must be
// one of the options.
func (p Prompt) normalize(answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = p.Default
	}
	switch p.Kind {
	case KindConfirm:
		b, err := parseConfirm(answer)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case KindSelect:
		if !slices.Contains(p.Options, answer) {
			return "", fmt.Errorf("%s: %q is not one of %s", p.Label, answer, strings.Join(p.Options, ", "))
		}
	}
	return answer, nil
}

func parseConfirm(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected yes or no, got %q", s)
	}
	return b, nil
}

func parseCount(label, s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: expected a number, got %q", label, s)
	}
	if n < lo || (hi > 0 && n > hi) {
		if hi > 0 {
			return 0, fmt.Errorf("%s: must be between %d and %d, got %d", label, lo, hi, n)
		}
		return 0, fmt.Errorf("%s: must be at least %d, got %d", label, lo, n)
	}
	return n, nil
}

func bounds(lo, hi int) string {
	if hi > 0 {
		return fmt.Sprintf("%d-%d", lo, hi)
	}
	return fmt.Sprintf("%d or more", lo)
}

// Package selectors holds named dbt selectors, the authoring session that
// produces them and the selectors.yml serializer.
package selectors

import (
	"fmt"
	"strings"

	"github.com/dohr-michael/dbtsel/internal/criteria"
)

// Mode names the authoring shortcut used for a definition.
type Mode string

const (
	ModeInline     Mode = "inline"
	ModeKeyValue   Mode = "keyvalue"
	ModeStructured Mode = "structured"
)

// Modes returns the definition modes in the order they are offered.
func Modes() []Mode {
	return []Mode{ModeInline, ModeKeyValue, ModeStructured}
}

// Definition is the selection logic of a selector: Inline, KeyValue or
// Structured.
type Definition interface {
	Mode() Mode
	definition()
}

// Inline is a CLI-style definition such as "tag:nightly" or "+path:models/core".
type Inline string

func (Inline) Mode() Mode  { return ModeInline }
func (Inline) definition() {}

// KeyValue is a single method: value pair.
type KeyValue struct {
	Method criteria.Method
	Value  string
}

func (KeyValue) Mode() Mode  { return ModeKeyValue }
func (KeyValue) definition() {}

// Structured is a full criterion tree.
type Structured struct {
	Criterion criteria.Criterion
}

func (Structured) Mode() Mode  { return ModeStructured }
func (Structured) definition() {}

// Meta is the descriptive part of a selector confirmed before its definition.
type Meta struct {
	Name        string
	Description string
	Default     bool
}

// Selector is a named, reusable selection definition. Selectors are not
// edited once created; remove and re-add to correct one.
type Selector struct {
	Name        string
	Description string
	Default     bool
	Definition  Definition
}

// Meta returns the selector's metadata.
func (s Selector) Meta() Meta {
	return Meta{Name: s.Name, Description: s.Description, Default: s.Default}
}

func newSelector(m Meta, def Definition) Selector {
	return Selector{Name: m.Name, Description: m.Description, Default: m.Default, Definition: def}
}

func validateMeta(m Meta) error {
	if strings.TrimSpace(m.Name) == "" {
		return &criteria.ValidationError{Field: "name", Reason: "is required"}
	}
	return nil
}

func validateDefinition(b *criteria.Builder, def Definition) error {
	switch d := def.(type) {
	case Inline:
		if strings.TrimSpace(string(d)) == "" {
			return &criteria.ValidationError{Field: "definition", Reason: "inline definition is empty"}
		}
	case KeyValue:
		if !d.Method.Valid() {
			return &criteria.ValidationError{Field: "definition", Reason: fmt.Sprintf("unknown method %q", d.Method)}
		}
	case Structured:
		return b.Validate(d.Criterion)
	case nil:
		return &criteria.ValidationError{Field: "definition", Reason: "is required"}
	default:
		return &criteria.ValidationError{Field: "definition", Reason: fmt.Sprintf("unsupported definition %T", def)}
	}
	return nil
}

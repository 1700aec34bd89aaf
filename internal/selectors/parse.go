package selectors

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/yamlnode"
)

// Parse reads a selectors.yml document. Structured definitions are checked
// against b's limits. An empty document yields no selectors.
func Parse(data []byte, b *criteria.Builder) ([]Selector, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse selectors: %w", err)
	}
	root := yamlnode.Resolve(&doc)
	if root.Kind == 0 || root.Kind == yaml.DocumentNode || (root.Kind == yaml.ScalarNode && root.Tag == "!!null") {
		return nil, nil
	}

	pairs, err := yamlnode.Pairs(root)
	if err != nil {
		return nil, fmt.Errorf("parse selectors: %w", err)
	}
	var list *yaml.Node
	for _, p := range pairs {
		if p.Key != "selectors" {
			return nil, fmt.Errorf("parse selectors: line %d: unknown top-level key %q", p.Value.Line, p.Key)
		}
		list = yamlnode.Resolve(p.Value)
	}
	if list == nil || (list.Kind == yaml.ScalarNode && list.Tag == "!!null") {
		return nil, nil
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parse selectors: line %d: selectors must be a sequence, got %s", list.Line, yamlnode.KindName(list))
	}

	out := make([]Selector, 0, len(list.Content))
	for i, item := range list.Content {
		s, err := parseSelector(item, b)
		if err != nil {
			if s.Name != "" {
				return nil, fmt.Errorf("selector %d (%s): %w", i, s.Name, err)
			}
			return nil, fmt.Errorf("selector %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ParseSelector reads a single selector mapping, such as an API request
// body. JSON input is accepted since it is valid YAML.
func ParseSelector(data []byte, b *criteria.Builder) (Selector, error) {
	n, err := document(data)
	if err != nil {
		return Selector{}, err
	}
	s, err := parseSelector(n, b)
	if err != nil {
		return Selector{}, err
	}
	return s, nil
}

// ParseDefinition reads a definition on its own: a string, a single
// method: value mapping or a criterion mapping.
func ParseDefinition(data []byte, b *criteria.Builder) (Definition, error) {
	n, err := document(data)
	if err != nil {
		return nil, err
	}
	def, err := parseDefinition(n, b)
	if err != nil {
		return nil, err
	}
	if err := validateDefinition(b, def); err != nil {
		return nil, err
	}
	return def, nil
}

func document(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	n := yamlnode.Resolve(&doc)
	if n.Kind == 0 || n.Kind == yaml.DocumentNode {
		return nil, fmt.Errorf("parse document: empty document")
	}
	return n, nil
}

// parseSelector returns the partially read selector alongside any error so
// the caller can name it.
func parseSelector(n *yaml.Node, b *criteria.Builder) (Selector, error) {
	pairs, err := yamlnode.Pairs(n)
	if err != nil {
		return Selector{}, err
	}
	var (
		s      Selector
		defN   *yaml.Node
		hasDef bool
	)
	for _, p := range pairs {
		switch p.Key {
		case "name":
			if s.Name, err = yamlnode.String(p.Value); err != nil {
				return s, fmt.Errorf("name: %w", err)
			}
		case "description":
			if s.Description, err = yamlnode.String(p.Value); err != nil {
				return s, fmt.Errorf("description: %w", err)
			}
		case "default":
			if s.Default, err = yamlnode.BoolValue(p.Value); err != nil {
				return s, fmt.Errorf("default: %w", err)
			}
		case "definition":
			defN, hasDef = p.Value, true
		default:
			return s, fmt.Errorf("line %d: unknown key %q", p.Value.Line, p.Key)
		}
	}
	if err := validateMeta(s.Meta()); err != nil {
		return s, err
	}
	if !hasDef {
		return s, &criteria.ValidationError{Field: "definition", Reason: "is required"}
	}
	def, err := parseDefinition(defN, b)
	if err != nil {
		return s, err
	}
	if err := validateDefinition(b, def); err != nil {
		return s, err
	}
	s.Definition = def
	return s, nil
}

// parseDefinition tells the three authoring shapes apart: a scalar is an
// inline definition, a one-key mapping keyed by a method is a key-value
// definition, anything else is a criterion.
func parseDefinition(n *yaml.Node, b *criteria.Builder) (Definition, error) {
	if n.Kind == yaml.AliasNode {
		return nil, &criteria.ValidationError{Field: "definition", Reason: fmt.Sprintf("line %d: aliases are not allowed in definitions", n.Line)}
	}
	n = yamlnode.Resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		s, err := yamlnode.String(n)
		if err != nil {
			return nil, err
		}
		return Inline(s), nil
	case yaml.MappingNode:
		if len(n.Content) == 2 && isKeyValueKey(n.Content[0].Value) {
			v, err := yamlnode.String(n.Content[1])
			if err != nil {
				return nil, &criteria.ValidationError{Field: "definition", Reason: err.Error()}
			}
			return KeyValue{Method: criteria.Method(n.Content[0].Value), Value: v}, nil
		}
		c, err := b.Decode(n)
		if err != nil {
			return nil, err
		}
		return Structured{Criterion: c}, nil
	default:
		return nil, &criteria.ValidationError{
			Field:  "definition",
			Reason: fmt.Sprintf("line %d: expected a string or a mapping, got %s", n.Line, yamlnode.KindName(n)),
		}
	}
}

// isKeyValueKey reports whether key names a method rather than a criterion
// field. "method" itself is a criterion field.
func isKeyValueKey(key string) bool {
	return key != "method" && criteria.Method(key).Valid()
}

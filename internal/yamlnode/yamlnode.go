// Package yamlnode builds and inspects gopkg.in/yaml.v3 node trees. Building
// documents from nodes keeps mapping keys in authored order and scalars
// explicitly typed.
package yamlnode

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Str returns a string scalar. Values that would otherwise resolve to another
// type ("true", "10") are quoted by the encoder.
func Str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Bool returns a boolean scalar.
func Bool(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

// Int returns an integer scalar.
func Int(i int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(i)}
}

// Seq returns a block sequence of items.
func Seq(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

// Map is a block mapping under construction. Keys keep insertion order.
type Map struct {
	node *yaml.Node
}

// NewMap returns an empty mapping.
func NewMap() *Map {
	return &Map{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// Set appends key: value.
func (m *Map) Set(key string, value *yaml.Node) *Map {
	m.node.Content = append(m.node.Content, Str(key), value)
	return m
}

// Node returns the underlying mapping node.
func (m *Map) Node() *yaml.Node {
	return m.node
}

// Pair is one key/value entry of a mapping node.
type Pair struct {
	Key   string
	Value *yaml.Node
}

// Pairs returns the entries of a mapping node in document order.
func Pairs(n *yaml.Node) ([]Pair, error) {
	n = Resolve(n)
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping, got %s", n.Line, KindName(n))
	}
	pairs := make([]Pair, 0, len(n.Content)/2)
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}
		if seen[k.Value] {
			return nil, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		seen[k.Value] = true
		pairs = append(pairs, Pair{Key: k.Value, Value: n.Content[i+1]})
	}
	return pairs, nil
}

// Resolve follows document wrappers and aliases to the content node.
func Resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) == 1:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode && n.Alias != nil:
			n = n.Alias
		default:
			return n
		}
	}
	return n
}

// String decodes a scalar as text. Non-string scalars such as numbers keep
// their literal spelling.
func String(n *yaml.Node) (string, error) {
	n = Resolve(n)
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: expected a scalar, got %s", n.Line, KindName(n))
	}
	if n.Tag == "!!null" {
		return "", nil
	}
	return n.Value, nil
}

// BoolValue decodes a boolean scalar.
func BoolValue(n *yaml.Node) (bool, error) {
	var b bool
	if err := Resolve(n).Decode(&b); err != nil {
		return false, fmt.Errorf("line %d: expected a boolean: %w", n.Line, err)
	}
	return b, nil
}

// IntValue decodes an integer scalar.
func IntValue(n *yaml.Node) (int, error) {
	var i int
	if err := Resolve(n).Decode(&i); err != nil {
		return 0, fmt.Errorf("line %d: expected an integer: %w", n.Line, err)
	}
	return i, nil
}

// KindName names the kind of n for error messages.
func KindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "empty node"
	}
}

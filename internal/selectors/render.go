package selectors

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/yamlnode"
)

// DefaultFileName is the file dbt reads selectors from.
const DefaultFileName = "selectors.yml"

// DefaultIndent is the indentation of rendered documents.
const DefaultIndent = 2

// Document returns the YAML node tree for selectors: a mapping with a single
// selectors key. Selector keys are written as name, description, default,
// definition.
func Document(selectors []Selector) *yaml.Node {
	items := make([]*yaml.Node, len(selectors))
	for i, s := range selectors {
		items[i] = selectorNode(s)
	}
	return yamlnode.NewMap().Set("selectors", yamlnode.Seq(items...)).Node()
}

func selectorNode(s Selector) *yaml.Node {
	return yamlnode.NewMap().
		Set("name", yamlnode.Str(s.Name)).
		Set("description", yamlnode.Str(s.Description)).
		Set("default", yamlnode.Bool(s.Default)).
		Set("definition", DefinitionNode(s.Definition)).
		Node()
}

// DefinitionNode returns the YAML form of def: a string, a single-key
// mapping or a criterion mapping.
func DefinitionNode(def Definition) *yaml.Node {
	switch d := def.(type) {
	case Inline:
		return yamlnode.Str(string(d))
	case KeyValue:
		return yamlnode.NewMap().Set(string(d.Method), yamlnode.Str(d.Value)).Node()
	case Structured:
		return criteria.EncodeYAML(d.Criterion)
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// Encode writes selectors to w as a block-style YAML document. An indent of
// zero or less uses DefaultIndent.
func Encode(w io.Writer, selectors []Selector, indent int) error {
	if indent <= 0 {
		indent = DefaultIndent
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(indent)
	if err := enc.Encode(Document(selectors)); err != nil {
		return fmt.Errorf("encode selectors: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode selectors: %w", err)
	}
	return nil
}

// Render returns selectors as a YAML document with the default indent.
func Render(selectors []Selector) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, selectors, DefaultIndent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

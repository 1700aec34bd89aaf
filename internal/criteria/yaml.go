package criteria

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/dbtsel/internal/yamlnode"
)

// Document keys of a criterion mapping.
const (
	keyMethod            = "method"
	keyValue             = "value"
	keyChildren          = "children"
	keyChildrenDepth     = "children_depth"
	keyParents           = "parents"
	keyParentsDepth      = "parents_depth"
	keyChildrensParents  = "childrens_parents"
	keyIndirectSelection = "indirect_selection"
	keyExclude           = "exclude"
)

// EncodeYAML renders c as a block mapping. Keys follow the authoring order:
// method, value, graph operators, indirect_selection, then exclude. Graph
// operators that were not requested are omitted, never written as false.
func EncodeYAML(c Criterion) *yaml.Node {
	m := yamlnode.NewMap()
	encodeNode(m, c.Node)
	if len(c.Exclude) > 0 {
		items := make([]*yaml.Node, len(c.Exclude))
		for i, n := range c.Exclude {
			em := yamlnode.NewMap()
			encodeNode(em, n)
			items[i] = em.Node()
		}
		m.Set(keyExclude, yamlnode.Seq(items...))
	}
	return m.Node()
}

func encodeNode(m *yamlnode.Map, n Node) {
	switch n := n.(type) {
	case *Simple:
		m.Set(keyMethod, yamlnode.Str(string(n.Method)))
		m.Set(keyValue, yamlnode.Str(n.Value))
		if n.Children {
			m.Set(keyChildren, yamlnode.Bool(true))
			if n.ChildrenDepth > 0 {
				m.Set(keyChildrenDepth, yamlnode.Int(n.ChildrenDepth))
			}
		}
		if n.Parents {
			m.Set(keyParents, yamlnode.Bool(true))
			if n.ParentsDepth > 0 {
				m.Set(keyParentsDepth, yamlnode.Int(n.ParentsDepth))
			}
		}
		if n.ChildrensParents {
			m.Set(keyChildrensParents, yamlnode.Bool(true))
		}
		m.Set(keyIndirectSelection, yamlnode.Str(string(n.IndirectSelection)))
	case *Composite:
		items := make([]*yaml.Node, len(n.Items))
		for i, item := range n.Items {
			items[i] = EncodeYAML(item)
		}
		m.Set(string(n.Operator), yamlnode.Seq(items...))
	}
}

// MarshalYAML implements yaml.Marshaler.
func (c Criterion) MarshalYAML() (any, error) {
	if c.Node == nil {
		return nil, fmt.Errorf("marshal criterion: empty criterion")
	}
	return EncodeYAML(c), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Only the document shape is
// checked; use Builder.Validate for limits.
func (c *Criterion) UnmarshalYAML(n *yaml.Node) error {
	out, err := DecodeYAML(n)
	if err != nil {
		return err
	}
	*c = out
	return nil
}

// DecodeYAML reads a criterion mapping. A missing indirect_selection decodes
// as eager, the selection engine's default.
func DecodeYAML(n *yaml.Node) (Criterion, error) {
	d := decoder{maxDepth: DefaultMaxDepth}
	return d.criterion(Root(), n)
}

// Decode reads a criterion mapping and validates it against b's limits.
func (b *Builder) Decode(n *yaml.Node) (Criterion, error) {
	d := decoder{maxDepth: b.limits.MaxDepth}
	c, err := d.criterion(Root(), n)
	if err != nil {
		return Criterion{}, err
	}
	if err := b.Validate(c); err != nil {
		return Criterion{}, err
	}
	return c, nil
}

type decoder struct {
	maxDepth int
}

func (d decoder) criterion(p Path, n *yaml.Node) (Criterion, error) {
	if p.Level() >= d.maxDepth {
		return Criterion{}, &DepthExceededError{Path: p.String(), Depth: p.Level() + 1, Max: d.maxDepth}
	}
	if err := rejectAlias(p, "", n); err != nil {
		return Criterion{}, err
	}
	pairs, err := yamlnode.Pairs(n)
	if err != nil {
		return Criterion{}, &ValidationError{Path: p.String(), Reason: err.Error()}
	}

	simple := &Simple{IndirectSelection: IndirectEager}
	var (
		simpleKeys []string
		hasMethod  bool
		composite  *Composite
		exclusions *yaml.Node
	)
	fieldErr := func(field string, err error) error {
		return &ValidationError{Path: p.String(), Field: field, Reason: err.Error()}
	}

	for _, pair := range pairs {
		switch pair.Key {
		case keyMethod:
			s, err := yamlnode.String(pair.Value)
			if err != nil {
				return Criterion{}, fieldErr(pair.Key, err)
			}
			simple.Method = Method(s)
			if !simple.Method.Valid() {
				return Criterion{}, &ValidationError{Path: p.String(), Field: pair.Key, Reason: fmt.Sprintf("unknown method %q", s)}
			}
			hasMethod = true
		case keyValue:
			s, err := yamlnode.String(pair.Value)
			if err != nil {
				return Criterion{}, fieldErr(pair.Key, err)
			}
			simple.Value = s
		case keyChildren, keyParents, keyChildrensParents:
			v, err := yamlnode.BoolValue(pair.Value)
			if err != nil {
				return Criterion{}, fieldErr(pair.Key, err)
			}
			switch pair.Key {
			case keyChildren:
				simple.Children = v
			case keyParents:
				simple.Parents = v
			default:
				simple.ChildrensParents = v
			}
		case keyChildrenDepth, keyParentsDepth:
			v, err := yamlnode.IntValue(pair.Value)
			if err != nil {
				return Criterion{}, fieldErr(pair.Key, err)
			}
			if v < 1 {
				return Criterion{}, &ValidationError{Path: p.String(), Field: pair.Key, Reason: fmt.Sprintf("must be a positive integer, got %d", v)}
			}
			if pair.Key == keyChildrenDepth {
				simple.ChildrenDepth = v
			} else {
				simple.ParentsDepth = v
			}
		case keyIndirectSelection:
			s, err := yamlnode.String(pair.Value)
			if err != nil {
				return Criterion{}, fieldErr(pair.Key, err)
			}
			v, err := ParseIndirectSelection(s)
			if err != nil {
				return Criterion{}, withPath(err, p)
			}
			simple.IndirectSelection = v
		case string(OperatorUnion), string(OperatorIntersection):
			if composite != nil {
				return Criterion{}, &ValidationError{Path: p.String(), Field: pair.Key, Reason: fmt.Sprintf("cannot be combined with %s", composite.Operator)}
			}
			composite, err = d.composite(p, Operator(pair.Key), pair.Value)
			if err != nil {
				return Criterion{}, err
			}
			continue
		case keyExclude:
			exclusions = pair.Value
			continue
		default:
			return Criterion{}, &ValidationError{Path: p.String(), Field: pair.Key, Reason: "unknown key"}
		}
		simpleKeys = append(simpleKeys, pair.Key)
	}

	var c Criterion
	switch {
	case composite != nil && len(simpleKeys) > 0:
		return Criterion{}, &ValidationError{Path: p.String(), Field: simpleKeys[0], Reason: fmt.Sprintf("cannot be combined with %s", composite.Operator)}
	case composite != nil:
		c.Node = composite
	case hasMethod:
		if err := validateGraphDepth(p, keyChildren, simple.Children, simple.ChildrenDepth); err != nil {
			return Criterion{}, err
		}
		if err := validateGraphDepth(p, keyParents, simple.Parents, simple.ParentsDepth); err != nil {
			return Criterion{}, err
		}
		c.Node = simple
	case len(simpleKeys) > 0:
		return Criterion{}, &ValidationError{Path: p.String(), Field: keyMethod, Reason: "is required"}
	default:
		return Criterion{}, &ValidationError{Path: p.String(), Reason: "needs a method or a union/intersection"}
	}

	if exclusions != nil {
		if p.InExclude() {
			return Criterion{}, &ValidationError{Path: p.String(), Field: keyExclude, Reason: "an excluded criterion cannot carry exclusions"}
		}
		nodes, err := d.exclusions(p, exclusions)
		if err != nil {
			return Criterion{}, err
		}
		c.Exclude = nodes
	}
	return c, nil
}

func (d decoder) composite(p Path, op Operator, n *yaml.Node) (*Composite, error) {
	if err := rejectAlias(p, string(op), n); err != nil {
		return nil, err
	}
	n = yamlnode.Resolve(n)
	if n.Kind != yaml.SequenceNode {
		return nil, &ValidationError{Path: p.String(), Field: string(op), Reason: fmt.Sprintf("expected a sequence, got %s", yamlnode.KindName(n))}
	}
	comp := &Composite{Operator: op, Items: make([]Criterion, 0, len(n.Content))}
	for i, item := range n.Content {
		c, err := d.criterion(p.Item(op, i), item)
		if err != nil {
			return nil, err
		}
		comp.Items = append(comp.Items, c)
	}
	return comp, nil
}

func (d decoder) exclusions(p Path, n *yaml.Node) ([]Node, error) {
	if err := rejectAlias(p, keyExclude, n); err != nil {
		return nil, err
	}
	n = yamlnode.Resolve(n)
	if n.Kind != yaml.SequenceNode {
		return nil, &ValidationError{Path: p.String(), Field: keyExclude, Reason: fmt.Sprintf("expected a sequence, got %s", yamlnode.KindName(n))}
	}
	if len(n.Content) == 0 {
		return nil, &ValidationError{Path: p.String(), Field: keyExclude, Reason: "at least one exclusion is required"}
	}
	nodes := make([]Node, 0, len(n.Content))
	for i, item := range n.Content {
		c, err := d.criterion(p.Exclusion(i), item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, c.Node)
	}
	return nodes, nil
}

// rejectAlias refuses aliases where a criterion or a list of criteria is
// expected. Following them would let a short document expand into an
// exponentially large tree.
func rejectAlias(p Path, field string, n *yaml.Node) error {
	if n != nil && n.Kind == yaml.AliasNode {
		return &ValidationError{Path: p.String(), Field: field, Reason: fmt.Sprintf("line %d: aliases are not allowed in criteria", n.Line)}
	}
	return nil
}

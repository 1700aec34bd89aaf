package criteria

import "fmt"

// Validate checks a criterion that was not produced by this Builder, such as
// one parsed from a document, against the same rules and limits.
func (b *Builder) Validate(c Criterion) error {
	if d := Depth(c); d > b.limits.MaxDepth {
		return &DepthExceededError{Path: Root().String(), Depth: d, Max: b.limits.MaxDepth}
	}
	return b.validate(Root(), c)
}

func (b *Builder) validate(p Path, c Criterion) error {
	if err := b.validateNode(p, c.Node); err != nil {
		return err
	}
	if len(c.Exclude) == 0 {
		return nil
	}
	if p.InExclude() {
		return &ValidationError{Path: p.String(), Field: "exclude", Reason: "an excluded criterion cannot carry exclusions"}
	}
	if b.limits.MaxExclusions > 0 && len(c.Exclude) > b.limits.MaxExclusions {
		return &ValidationError{
			Path:   p.String(),
			Field:  "exclude",
			Reason: fmt.Sprintf("accepts at most %d exclusions, got %d", b.limits.MaxExclusions, len(c.Exclude)),
		}
	}
	for i, n := range c.Exclude {
		if err := b.validateNode(p.Exclusion(i), n); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) validateNode(p Path, n Node) error {
	switch n := n.(type) {
	case *Simple:
		return validateSimple(p, n)
	case *Composite:
		if !n.Operator.Valid() {
			return &ValidationError{Path: p.String(), Field: "operator", Reason: fmt.Sprintf("unknown operator %q", n.Operator)}
		}
		if len(n.Items) < b.limits.MinItems {
			return &ValidationError{
				Path:   p.String(),
				Field:  string(n.Operator),
				Reason: fmt.Sprintf("needs at least %d criteria, got %d", b.limits.MinItems, len(n.Items)),
			}
		}
		if b.limits.MaxItems > 0 && len(n.Items) > b.limits.MaxItems {
			return &ValidationError{
				Path:   p.String(),
				Field:  string(n.Operator),
				Reason: fmt.Sprintf("accepts at most %d criteria, got %d", b.limits.MaxItems, len(n.Items)),
			}
		}
		for i, item := range n.Items {
			if err := b.validate(p.Item(n.Operator, i), item); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return &ValidationError{Path: p.String(), Reason: "empty criterion"}
	default:
		return &ValidationError{Path: p.String(), Reason: fmt.Sprintf("unsupported node %T", n)}
	}
}

func validateSimple(p Path, s *Simple) error {
	if !s.Method.Valid() {
		return &ValidationError{Path: p.String(), Field: "method", Reason: fmt.Sprintf("unknown method %q", s.Method)}
	}
	if !s.IndirectSelection.Valid() {
		return &ValidationError{Path: p.String(), Field: "indirect_selection", Reason: fmt.Sprintf("unknown mode %q", s.IndirectSelection)}
	}
	if err := validateGraphDepth(p, "children", s.Children, s.ChildrenDepth); err != nil {
		return err
	}
	if err := validateGraphDepth(p, "parents", s.Parents, s.ParentsDepth); err != nil {
		return err
	}
	return nil
}

func validateGraphDepth(p Path, op string, set bool, depth int) error {
	switch {
	case depth < 0:
		return &ValidationError{Path: p.String(), Field: op + "_depth", Reason: fmt.Sprintf("must be a positive integer, got %d", depth)}
	case set && depth == 0:
		return &ValidationError{Path: p.String(), Field: op + "_depth", Reason: fmt.Sprintf("is required when %s is true", op)}
	case depth > 0 && !set:
		return &ValidationError{Path: p.String(), Field: op + "_depth", Reason: fmt.Sprintf("requires %s: true", op)}
	}
	return nil
}

package criteria

import "fmt"

// Default limits. The item and exclusion bounds mirror the interactive form;
// MaxDepth guards user-authored recursion.
const (
	DefaultMaxDepth      = 50
	DefaultMinItems      = 2
	DefaultMaxItems      = 10
	DefaultMaxExclusions = 5
)

// Limits bounds the shape of criteria a Builder accepts. MaxItems and
// MaxExclusions of 0 mean unbounded.
type Limits struct {
	MaxDepth      int
	MinItems      int
	MaxItems      int
	MaxExclusions int
}

// DefaultLimits returns the limits used by the interactive wizard.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:      DefaultMaxDepth,
		MinItems:      DefaultMinItems,
		MaxItems:      DefaultMaxItems,
		MaxExclusions: DefaultMaxExclusions,
	}
}

// Unbounded returns limits suited to non-interactive construction: only the
// structural minimum and the depth guard apply.
func Unbounded() Limits {
	return Limits{MaxDepth: DefaultMaxDepth, MinItems: DefaultMinItems}
}

func (l Limits) normalized() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	// A composite of fewer than two criteria is not a composition.
	if l.MinItems < DefaultMinItems {
		l.MinItems = DefaultMinItems
	}
	if l.MaxItems < 0 {
		l.MaxItems = 0
	}
	if l.MaxExclusions < 0 {
		l.MaxExclusions = 0
	}
	return l
}

// SimpleInput carries the decisions behind a simple criterion. A nil depth
// means the graph operator was not requested.
type SimpleInput struct {
	Method            string
	Value             string
	ChildrenDepth     *int
	ParentsDepth      *int
	ChildrensParents  bool
	IndirectSelection string
}

// Builder constructs criteria. It holds no state beyond its limits and is
// safe to share.
type Builder struct {
	limits Limits
}

// NewBuilder returns a Builder enforcing limits.
func NewBuilder(limits Limits) *Builder {
	return &Builder{limits: limits.normalized()}
}

// Limits returns the effective limits.
func (b *Builder) Limits() Limits {
	return b.limits
}

// BuildSimple validates in and returns a simple criterion located at p.
func (b *Builder) BuildSimple(p Path, in SimpleInput) (Criterion, error) {
	if err := b.checkLevel(p, 1); err != nil {
		return Criterion{}, err
	}
	method, err := ParseMethod(in.Method)
	if err != nil {
		return Criterion{}, withPath(err, p)
	}
	indirect, err := ParseIndirectSelection(in.IndirectSelection)
	if err != nil {
		return Criterion{}, withPath(err, p)
	}

	s := &Simple{
		Method:            method,
		Value:             in.Value,
		ChildrensParents:  in.ChildrensParents,
		IndirectSelection: indirect,
	}
	if in.ChildrenDepth != nil {
		d, err := positiveDepth(p, "children_depth", *in.ChildrenDepth)
		if err != nil {
			return Criterion{}, err
		}
		s.Children, s.ChildrenDepth = true, d
	}
	if in.ParentsDepth != nil {
		d, err := positiveDepth(p, "parents_depth", *in.ParentsDepth)
		if err != nil {
			return Criterion{}, err
		}
		s.Parents, s.ParentsDepth = true, d
	}
	return Criterion{Node: s}, nil
}

func positiveDepth(p Path, field string, d int) (int, error) {
	if d < 1 {
		return 0, &ValidationError{Path: p.String(), Field: field, Reason: fmt.Sprintf("must be a positive integer, got %d", d)}
	}
	return d, nil
}

// BuildComposite combines items with op. Items keep their order.
func (b *Builder) BuildComposite(p Path, op Operator, items []Criterion) (Criterion, error) {
	if !op.Valid() {
		return Criterion{}, &ValidationError{Path: p.String(), Field: "operator", Reason: fmt.Sprintf("unknown operator %q (want union or intersection)", op)}
	}
	if len(items) < b.limits.MinItems {
		return Criterion{}, &ValidationError{
			Path:   p.String(),
			Field:  string(op),
			Reason: fmt.Sprintf("needs at least %d criteria, got %d", b.limits.MinItems, len(items)),
		}
	}
	if b.limits.MaxItems > 0 && len(items) > b.limits.MaxItems {
		return Criterion{}, &ValidationError{
			Path:   p.String(),
			Field:  string(op),
			Reason: fmt.Sprintf("accepts at most %d criteria, got %d", b.limits.MaxItems, len(items)),
		}
	}
	for i, item := range items {
		if item.Node == nil {
			return Criterion{}, &ValidationError{Path: p.Item(op, i).String(), Reason: "empty criterion"}
		}
	}

	c := Criterion{Node: &Composite{Operator: op, Items: cloneCriteria(items)}}
	if err := b.checkLevel(p, Depth(c)); err != nil {
		return Criterion{}, err
	}
	return c, nil
}

// AttachExclusions returns a copy of c with exclusions appended to its
// exclude list. It fails when p was itself reached through an exclude edge,
// when no exclusions are given, or when an exclusion carries exclusions.
func (b *Builder) AttachExclusions(p Path, c Criterion, exclusions []Criterion) (Criterion, error) {
	if p.InExclude() {
		return Criterion{}, &ValidationError{Path: p.String(), Field: "exclude", Reason: "an excluded criterion cannot carry exclusions"}
	}
	if c.Node == nil {
		return Criterion{}, &ValidationError{Path: p.String(), Reason: "empty criterion"}
	}
	if len(exclusions) == 0 {
		return Criterion{}, &ValidationError{Path: p.String(), Field: "exclude", Reason: "at least one exclusion is required"}
	}
	total := len(c.Exclude) + len(exclusions)
	if b.limits.MaxExclusions > 0 && total > b.limits.MaxExclusions {
		return Criterion{}, &ValidationError{
			Path:   p.String(),
			Field:  "exclude",
			Reason: fmt.Sprintf("accepts at most %d exclusions, got %d", b.limits.MaxExclusions, total),
		}
	}

	out := Criterion{Node: c.Node, Exclude: make([]Node, 0, total)}
	out.Exclude = append(out.Exclude, c.Exclude...)
	for i, ex := range exclusions {
		at := p.Exclusion(len(c.Exclude) + i)
		if ex.Node == nil {
			return Criterion{}, &ValidationError{Path: at.String(), Reason: "empty criterion"}
		}
		if len(ex.Exclude) > 0 {
			return Criterion{}, &ValidationError{Path: at.String(), Field: "exclude", Reason: "an excluded criterion cannot carry exclusions"}
		}
		out.Exclude = append(out.Exclude, ex.Node)
	}
	if err := b.checkLevel(p, Depth(out)); err != nil {
		return Criterion{}, err
	}
	return out, nil
}

// checkLevel fails when a subtree of height depth placed at p would exceed
// the depth limit.
func (b *Builder) checkLevel(p Path, depth int) error {
	if total := p.Level() + depth; total > b.limits.MaxDepth {
		return &DepthExceededError{Path: p.String(), Depth: total, Max: b.limits.MaxDepth}
	}
	return nil
}

func cloneCriteria(in []Criterion) []Criterion {
	out := make([]Criterion, len(in))
	for i, c := range in {
		out[i] = Criterion{Node: c.Node}
		if len(c.Exclude) > 0 {
			out[i].Exclude = append([]Node(nil), c.Exclude...)
		}
	}
	return out
}

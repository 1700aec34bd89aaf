// Package criteria models dbt selector criteria: simple method predicates,
// union/intersection compositions and their exclusions.
package criteria

import (
	"fmt"
	"slices"
	"strings"
)

// Method is a dbt node selection method.
type Method string

const (
	MethodTag           Method = "tag"
	MethodPath          Method = "path"
	MethodPackage       Method = "package"
	MethodConfig        Method = "config"
	MethodFQN           Method = "fqn"
	MethodResourceType  Method = "resource_type"
	MethodSource        Method = "source"
	MethodExposure      Method = "exposure"
	MethodMetric        Method = "metric"
	MethodState         Method = "state"
	MethodGroup         Method = "group"
	MethodAccess        Method = "access"
	MethodFile          Method = "file"
	MethodSavedQuery    Method = "saved_query"
	MethodSemanticModel Method = "semantic_model"
	MethodSourceStatus  Method = "source_status"
	MethodResult        Method = "result"
	MethodTestName      Method = "test_name"
	MethodVersion       Method = "version"
)

var methods = []Method{
	MethodTag, MethodPath, MethodPackage, MethodConfig, MethodFQN,
	MethodResourceType, MethodSource, MethodExposure, MethodMetric,
	MethodState, MethodGroup, MethodAccess, MethodFile, MethodSavedQuery,
	MethodSemanticModel, MethodSourceStatus, MethodResult, MethodTestName,
	MethodVersion,
}

// Methods returns every supported selection method in display order.
func Methods() []Method {
	return slices.Clone(methods)
}

// Valid reports whether m is a supported method. Besides the fixed list,
// "config.<key>" addresses a single node config key.
func (m Method) Valid() bool {
	if key, ok := strings.CutPrefix(string(m), string(MethodConfig)+"."); ok {
		return key != ""
	}
	return slices.Contains(methods, m)
}

// ParseMethod converts s into a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if !m.Valid() {
		return "", &ValidationError{Field: "method", Reason: fmt.Sprintf("unknown method %q", s)}
	}
	return m, nil
}

// IndirectSelection controls how tests attached to selected nodes are pulled in.
type IndirectSelection string

const (
	IndirectEager     IndirectSelection = "eager"
	IndirectCautious  IndirectSelection = "cautious"
	IndirectBuildable IndirectSelection = "buildable"
	IndirectEmpty     IndirectSelection = "empty"
)

var indirectSelections = []IndirectSelection{IndirectEager, IndirectCautious, IndirectBuildable, IndirectEmpty}

// IndirectSelections returns the supported indirect selection modes.
func IndirectSelections() []IndirectSelection {
	return slices.Clone(indirectSelections)
}

// Valid reports whether s is a supported mode.
func (s IndirectSelection) Valid() bool {
	return slices.Contains(indirectSelections, s)
}

// ParseIndirectSelection converts s into an IndirectSelection.
func ParseIndirectSelection(s string) (IndirectSelection, error) {
	v := IndirectSelection(s)
	if !v.Valid() {
		return "", &ValidationError{Field: "indirect_selection", Reason: fmt.Sprintf("unknown mode %q", s)}
	}
	return v, nil
}

// Operator is a set operator combining sub-criteria.
type Operator string

const (
	OperatorUnion        Operator = "union"
	OperatorIntersection Operator = "intersection"
)

// Operators returns the supported set operators.
func Operators() []Operator {
	return []Operator{OperatorUnion, OperatorIntersection}
}

// Valid reports whether o is a supported operator.
func (o Operator) Valid() bool {
	return o == OperatorUnion || o == OperatorIntersection
}

// ParseOperator converts s into an Operator.
func ParseOperator(s string) (Operator, error) {
	o := Operator(s)
	if !o.Valid() {
		return "", &ValidationError{Field: "operator", Reason: fmt.Sprintf("unknown operator %q (want union or intersection)", s)}
	}
	return o, nil
}

// Node is the body of a criterion: a *Simple or a *Composite.
type Node interface {
	node()
}

// Simple selects nodes with a single method:value predicate plus optional
// graph operators. An enabled operator always carries a positive depth.
type Simple struct {
	Method            Method
	Value             string
	Children          bool
	ChildrenDepth     int
	Parents           bool
	ParentsDepth      int
	ChildrensParents  bool
	IndirectSelection IndirectSelection
}

func (*Simple) node() {}

// Composite combines criteria with a set operator. Item order is kept as
// authored.
type Composite struct {
	Operator Operator
	Items    []Criterion
}

func (*Composite) node() {}

// Criterion is one node of the selection tree together with its exclusions.
// Exclusions are bare nodes and therefore cannot carry exclusions themselves.
type Criterion struct {
	Node    Node
	Exclude []Node
}

// Depth returns the height of the tree rooted at c. A lone simple criterion
// has depth 1; each composite or exclusion level adds one.
func Depth(c Criterion) int {
	d := nodeDepth(c.Node)
	for _, n := range c.Exclude {
		if ed := 1 + nodeDepth(n); ed > d {
			d = ed
		}
	}
	return d
}

func nodeDepth(n Node) int {
	comp, ok := n.(*Composite)
	if !ok {
		return 1
	}
	deepest := 0
	for _, item := range comp.Items {
		if d := Depth(item); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Walk calls fn for every node in the tree, depth-first, in authored order.
// The path passed to fn locates the node.
func Walk(c Criterion, fn func(p Path, n Node)) {
	walk(Root(), c, fn)
}

func walk(p Path, c Criterion, fn func(Path, Node)) {
	walkNode(p, c.Node, fn)
	for i, n := range c.Exclude {
		walkNode(p.Exclusion(i), n, fn)
	}
}

func walkNode(p Path, n Node, fn func(Path, Node)) {
	fn(p, n)
	if comp, ok := n.(*Composite); ok {
		for i, item := range comp.Items {
			walk(p.Item(comp.Operator, i), item, fn)
		}
	}
}

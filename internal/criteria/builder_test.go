package criteria

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intp(i int) *int { return &i }

func mustSimple(t *testing.T, b *Builder, p Path, method, value string) Criterion {
	t.Helper()
	c, err := b.BuildSimple(p, SimpleInput{Method: method, Value: value, IndirectSelection: "eager"})
	if err != nil {
		t.Fatalf("BuildSimple(%s:%s): %v", method, value, err)
	}
	return c
}

func TestBuildSimple(t *testing.T) {
	b := NewBuilder(DefaultLimits())

	c, err := b.BuildSimple(Root(), SimpleInput{
		Method:            "tag",
		Value:             "nightly",
		ChildrenDepth:     intp(2),
		ChildrensParents:  true,
		IndirectSelection: "cautious",
	})
	if err != nil {
		t.Fatalf("BuildSimple: %v", err)
	}

	want := Criterion{Node: &Simple{
		Method:            MethodTag,
		Value:             "nightly",
		Children:          true,
		ChildrenDepth:     2,
		ChildrensParents:  true,
		IndirectSelection: IndirectCautious,
	}}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("BuildSimple mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSimpleOmitsUnsetToggles(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	c := mustSimple(t, b, Root(), "path", "models/core")

	s := c.Node.(*Simple)
	if s.Children || s.ChildrenDepth != 0 {
		t.Errorf("children = %v/%d, want unset", s.Children, s.ChildrenDepth)
	}
	if s.Parents || s.ParentsDepth != 0 {
		t.Errorf("parents = %v/%d, want unset", s.Parents, s.ParentsDepth)
	}
}

func TestBuildSimpleValidation(t *testing.T) {
	b := NewBuilder(DefaultLimits())

	tests := []struct {
		name  string
		in    SimpleInput
		field string
	}{
		{"unknown method", SimpleInput{Method: "colour", IndirectSelection: "eager"}, "method"},
		{"empty method", SimpleInput{IndirectSelection: "eager"}, "method"},
		{"unknown indirect", SimpleInput{Method: "tag", IndirectSelection: "lazy"}, "indirect_selection"},
		{"missing indirect", SimpleInput{Method: "tag"}, "indirect_selection"},
		{"zero children depth", SimpleInput{Method: "tag", ChildrenDepth: intp(0), IndirectSelection: "eager"}, "children_depth"},
		{"negative parents depth", SimpleInput{Method: "tag", ParentsDepth: intp(-1), IndirectSelection: "eager"}, "parents_depth"},
		{"bare config", SimpleInput{Method: "config.", IndirectSelection: "eager"}, "method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.BuildSimple(Root(), tt.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if ve.Path != "root" {
				t.Errorf("Path = %q, want %q", ve.Path, "root")
			}
		})
	}
}

func TestBuildSimpleConfigKey(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	c := mustSimple(t, b, Root(), "config.materialized", "incremental")
	if got := c.Node.(*Simple).Method; got != "config.materialized" {
		t.Errorf("Method = %q, want config.materialized", got)
	}
}

func TestBuildComposite(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	p := Root()
	a := mustSimple(t, b, p.Item(OperatorUnion, 0), "tag", "nightly")
	z := mustSimple(t, b, p.Item(OperatorUnion, 1), "path", "models/core")

	c, err := b.BuildComposite(p, OperatorUnion, []Criterion{a, z})
	if err != nil {
		t.Fatalf("BuildComposite: %v", err)
	}
	comp, ok := c.Node.(*Composite)
	if !ok {
		t.Fatalf("Node = %T, want *Composite", c.Node)
	}
	if comp.Operator != OperatorUnion {
		t.Errorf("Operator = %q, want union", comp.Operator)
	}
	if diff := cmp.Diff([]Criterion{a, z}, comp.Items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCompositeRequiresTwoItems(t *testing.T) {
	b := NewBuilder(Unbounded())
	one := mustSimple(t, b, Root().Item(OperatorIntersection, 0), "tag", "a")

	for _, items := range [][]Criterion{nil, {one}} {
		_, err := b.BuildComposite(Root(), OperatorIntersection, items)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("BuildComposite(%d items) err = %v, want *ValidationError", len(items), err)
		}
		if ve.Field != "intersection" {
			t.Errorf("Field = %q, want intersection", ve.Field)
		}
	}
}

func TestBuildCompositeMinItemsCannotDropBelowTwo(t *testing.T) {
	b := NewBuilder(Limits{MinItems: 1})
	one := mustSimple(t, b, Root(), "tag", "a")
	if _, err := b.BuildComposite(Root(), OperatorUnion, []Criterion{one}); err == nil {
		t.Fatal("expected error for single-item composite")
	}
}

func TestBuildCompositeMaxItems(t *testing.T) {
	items := make([]Criterion, 11)
	unbounded := NewBuilder(Unbounded())
	for i := range items {
		items[i] = mustSimple(t, unbounded, Root(), "tag", "t")
	}

	if _, err := unbounded.BuildComposite(Root(), OperatorUnion, items); err != nil {
		t.Errorf("unbounded BuildComposite(11) = %v, want nil", err)
	}

	_, err := NewBuilder(DefaultLimits()).BuildComposite(Root(), OperatorUnion, items)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if !strings.Contains(ve.Reason, "at most 10") {
		t.Errorf("Reason = %q, want mention of the limit", ve.Reason)
	}
}

func TestBuildCompositeUnknownOperator(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	a := mustSimple(t, b, Root(), "tag", "a")
	_, err := b.BuildComposite(Root(), Operator("xor"), []Criterion{a, a})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "operator" {
		t.Fatalf("err = %v, want operator ValidationError", err)
	}
}

func TestBuildCompositeCopiesItems(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	items := []Criterion{mustSimple(t, b, Root(), "tag", "a"), mustSimple(t, b, Root(), "tag", "b")}
	c, err := b.BuildComposite(Root(), OperatorUnion, items)
	if err != nil {
		t.Fatal(err)
	}
	items[0] = mustSimple(t, b, Root(), "tag", "changed")
	if got := c.Node.(*Composite).Items[0].Node.(*Simple).Value; got != "a" {
		t.Errorf("Items[0].Value = %q after caller mutation, want a", got)
	}
}

func TestAttachExclusions(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	base := mustSimple(t, b, Root(), "path", "models")
	ex := mustSimple(t, b, Root().Exclusion(0), "tag", "deprecated")

	c, err := b.AttachExclusions(Root(), base, []Criterion{ex})
	if err != nil {
		t.Fatalf("AttachExclusions: %v", err)
	}
	if len(c.Exclude) != 1 {
		t.Fatalf("len(Exclude) = %d, want 1", len(c.Exclude))
	}
	if diff := cmp.Diff(ex.Node, c.Exclude[0]); diff != "" {
		t.Errorf("Exclude[0] mismatch (-want +got):\n%s", diff)
	}
	if len(base.Exclude) != 0 {
		t.Errorf("base criterion was mutated: %d exclusions", len(base.Exclude))
	}
}

func TestAttachExclusionsInExcludeContext(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	at := Root().Exclusion(0)
	inner := mustSimple(t, b, at, "tag", "deprecated")
	ex := mustSimple(t, b, at.Exclusion(0), "tag", "other")

	_, err := b.AttachExclusions(at, inner, []Criterion{ex})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if ve.Path != "root.exclude[0]" || ve.Field != "exclude" {
		t.Errorf("error location = %s.%s, want root.exclude[0].exclude", ve.Path, ve.Field)
	}
}

func TestAttachExclusionsRejectsNestedExclusions(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	base := mustSimple(t, b, Root(), "path", "models")
	nested := Criterion{
		Node:    mustSimple(t, b, Root(), "tag", "a").Node,
		Exclude: []Node{mustSimple(t, b, Root(), "tag", "b").Node},
	}

	_, err := b.AttachExclusions(Root(), base, []Criterion{nested})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestAttachExclusionsCounts(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	base := mustSimple(t, b, Root(), "path", "models")

	if _, err := b.AttachExclusions(Root(), base, nil); err == nil {
		t.Error("AttachExclusions(nil) = nil error, want ValidationError")
	}

	six := make([]Criterion, 6)
	for i := range six {
		six[i] = mustSimple(t, b, Root().Exclusion(i), "tag", "x")
	}
	if _, err := b.AttachExclusions(Root(), base, six); err == nil {
		t.Error("AttachExclusions(6) = nil error, want ValidationError")
	}
	if _, err := NewBuilder(Unbounded()).AttachExclusions(Root(), base, six); err != nil {
		t.Errorf("unbounded AttachExclusions(6) = %v, want nil", err)
	}
}

func TestAttachExclusionsToExcludedUnionItem(t *testing.T) {
	// Items of an excluded composite are ordinary criteria again.
	b := NewBuilder(DefaultLimits())
	item := Root().Exclusion(0).Item(OperatorUnion, 0)
	if item.InExclude() {
		t.Fatal("union item under exclude reported InExclude")
	}
	base := mustSimple(t, b, item, "tag", "a")
	ex := mustSimple(t, b, item.Exclusion(0), "tag", "b")
	if _, err := b.AttachExclusions(item, base, []Criterion{ex}); err != nil {
		t.Errorf("AttachExclusions: %v", err)
	}
}

func TestDepthGuard(t *testing.T) {
	b := NewBuilder(Limits{MaxDepth: 3})

	p := Root()
	c := mustSimple(t, b, p, "tag", "leaf")
	var err error
	for i := 0; i < 5 && err == nil; i++ {
		c, err = b.BuildComposite(p, OperatorUnion, []Criterion{c, c})
	}
	var de *DepthExceededError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DepthExceededError", err)
	}
	if de.Max != 3 || de.Depth != 4 {
		t.Errorf("DepthExceededError = %+v, want Depth 4 Max 3", de)
	}
}

func TestDepthGuardByPath(t *testing.T) {
	b := NewBuilder(Limits{MaxDepth: 2})
	p := Root().Item(OperatorUnion, 0).Item(OperatorUnion, 1)

	_, err := b.BuildSimple(p, SimpleInput{Method: "tag", IndirectSelection: "eager"})
	var de *DepthExceededError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DepthExceededError", err)
	}
	if de.Path != "root.union[0].union[1]" {
		t.Errorf("Path = %q", de.Path)
	}
}

func TestDepth(t *testing.T) {
	b := NewBuilder(Unbounded())
	leaf := mustSimple(t, b, Root(), "tag", "a")
	pair, _ := b.BuildComposite(Root(), OperatorUnion, []Criterion{leaf, leaf})
	nested, _ := b.BuildComposite(Root(), OperatorIntersection, []Criterion{leaf, pair})
	withEx, _ := b.AttachExclusions(Root(), leaf, []Criterion{pair})

	tests := []struct {
		name string
		c    Criterion
		want int
	}{
		{"leaf", leaf, 1},
		{"pair", pair, 2},
		{"nested", nested, 3},
		{"exclusion", withEx, 3},
	}
	for _, tt := range tests {
		if got := Depth(tt.c); got != tt.want {
			t.Errorf("Depth(%s) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestPathString(t *testing.T) {
	p := Root().Item(OperatorUnion, 1).Exclusion(0).Item(OperatorIntersection, 2)
	if got, want := p.String(), "root.union[1].exclude[0].intersection[2]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := p.Level(); got != 3 {
		t.Errorf("Level() = %d, want 3", got)
	}
	if !Root().Exclusion(3).InExclude() {
		t.Error("exclusion path not InExclude")
	}
}

func TestWalk(t *testing.T) {
	b := NewBuilder(Unbounded())
	leaf := mustSimple(t, b, Root(), "tag", "a")
	pair, _ := b.BuildComposite(Root(), OperatorUnion, []Criterion{leaf, leaf})
	c, _ := b.AttachExclusions(Root(), pair, []Criterion{leaf})

	var paths []string
	Walk(c, func(p Path, _ Node) { paths = append(paths, p.String()) })

	want := []string{"root", "root.union[0]", "root.union[1]", "root.exclude[0]"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("Walk paths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	b := NewBuilder(DefaultLimits())

	bad := []struct {
		name string
		c    Criterion
	}{
		{"empty", Criterion{}},
		{"bad method", Criterion{Node: &Simple{Method: "nope", IndirectSelection: IndirectEager}}},
		{"depth without toggle", Criterion{Node: &Simple{Method: MethodTag, ChildrenDepth: 2, IndirectSelection: IndirectEager}}},
		{"toggle without depth", Criterion{Node: &Simple{Method: MethodTag, Parents: true, IndirectSelection: IndirectEager}}},
		{"toggle with zero depth", Criterion{Node: &Simple{Method: MethodTag, Children: true, ChildrenDepth: 0, IndirectSelection: IndirectEager}}},
		{"single item", Criterion{Node: &Composite{Operator: OperatorUnion, Items: []Criterion{
			{Node: &Simple{Method: MethodTag, IndirectSelection: IndirectEager}},
		}}}},
	}
	for _, tt := range bad {
		if err := b.Validate(tt.c); err == nil {
			t.Errorf("Validate(%s) = nil, want error", tt.name)
		}
	}

	good := Criterion{Node: &Simple{Method: MethodTag, Parents: true, ParentsDepth: 1, IndirectSelection: IndirectEager}}
	if err := b.Validate(good); err != nil {
		t.Errorf("Validate(parents with depth) = %v, want nil", err)
	}
}

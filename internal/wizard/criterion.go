package wizard

import (
	"fmt"
	"strconv"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

const (
	typeSimple    = "simple"
	typeComposite = "composite"
)

type stage int

const (
	stageType stage = iota
	stageMethod
	stageValue
	stageChildren
	stageChildrenDepth
	stageParents
	stageParentsDepth
	stageChildrensParents
	stageIndirect
	stageOperator
	stageCount
	stageItems
	stageAddExclusions
	stageExclusionCount
	stageExclusions
)

// frame is one criterion under construction. Sub-criteria and exclusions
// are authored in frames pushed above it; while they are, the frame waits in
// stageItems or stageExclusions.
type frame struct {
	path  criteria.Path
	stage stage

	in criteria.SimpleInput

	op    criteria.Operator
	count int
	items []criteria.Criterion

	built     criteria.Criterion
	exclCount int
	excls     []criteria.Criterion
}

func (f *frame) reset() {
	*f = frame{path: f.path}
}

func (f *frame) prompt(l criteria.Limits) Prompt {
	p := Prompt{Path: f.path.String()}
	switch f.stage {
	case stageType:
		p.ID, p.Kind, p.Label = "type", KindSelect, "Type"
		p.Options, p.Default = []string{typeSimple, typeComposite}, typeSimple
		p.Help = "simple: one method:value predicate; composite: a union or intersection"
	case stageMethod:
		p.ID, p.Kind, p.Label = "method", KindSelect, "Method"
		p.Options, p.Default = methodOptions(), string(criteria.MethodTag)
	case stageValue:
		p.ID, p.Kind, p.Label = "value", KindText, "Value"
	case stageChildren:
		p.ID, p.Kind, p.Label, p.Default = "children", KindConfirm, "Include children?", "false"
	case stageChildrenDepth:
		p.ID, p.Kind, p.Label, p.Default = "children_depth", KindText, "Children depth", "1"
	case stageParents:
		p.ID, p.Kind, p.Label, p.Default = "parents", KindConfirm, "Include parents?", "false"
	case stageParentsDepth:
		p.ID, p.Kind, p.Label, p.Default = "parents_depth", KindText, "Parents depth", "1"
	case stageChildrensParents:
		p.ID, p.Kind, p.Label, p.Default = "childrens_parents", KindConfirm, "Include children's parents (@ operator)?", "false"
	case stageIndirect:
		p.ID, p.Kind, p.Label = "indirect_selection", KindSelect, "Indirect selection"
		p.Help = "Controls how tests are indirectly selected"
		for _, s := range criteria.IndirectSelections() {
			p.Options = append(p.Options, string(s))
		}
		p.Default = string(criteria.IndirectEager)
	case stageOperator:
		p.ID, p.Kind, p.Label = "operator", KindSelect, "Operator"
		p.Help = "union = OR, intersection = AND"
		for _, o := range criteria.Operators() {
			p.Options = append(p.Options, string(o))
		}
		p.Default = string(criteria.OperatorUnion)
	case stageCount:
		p.ID, p.Kind = "count", KindText
		p.Label = fmt.Sprintf("Number of %s elements (%s)", f.op, bounds(l.MinItems, l.MaxItems))
		p.Default = strconv.Itoa(l.MinItems)
	case stageAddExclusions:
		p.ID, p.Kind, p.Label, p.Default = "add_exclusions", KindConfirm, "Add exclusions?", "false"
	case stageExclusionCount:
		p.ID, p.Kind = "exclusion_count", KindText
		p.Label = fmt.Sprintf("Number of exclusions (%s)", bounds(1, l.MaxExclusions))
		p.Default = "1"
	}
	return p
}

func (w *Wizard) top() *frame {
	return w.stack[len(w.stack)-1]
}

func (w *Wizard) push(p criteria.Path) {
	w.stack = append(w.stack, &frame{path: p})
}

func (w *Wizard) answerCriterion(v string) error {
	f := w.top()
	l := w.builder.Limits()

	switch f.stage {
	case stageType:
		if v == typeComposite {
			if err := checkRoom(f.path, l); err != nil {
				return err
			}
			f.stage = stageOperator
		} else {
			f.stage = stageMethod
		}
	case stageMethod:
		f.in.Method = v
		f.stage = stageValue
	case stageValue:
		f.in.Value = v
		f.stage = stageChildren
	case stageChildren:
		f.in.ChildrenDepth = nil
		if v == "true" {
			f.stage = stageChildrenDepth
		} else {
			f.stage = stageParents
		}
	case stageChildrenDepth:
		n, err := parseCount("Children depth", v, 1, 0)
		if err != nil {
			return err
		}
		f.in.ChildrenDepth = &n
		f.stage = stageParents
	case stageParents:
		f.in.ParentsDepth = nil
		if v == "true" {
			f.stage = stageParentsDepth
		} else {
			f.stage = stageChildrensParents
		}
	case stageParentsDepth:
		n, err := parseCount("Parents depth", v, 1, 0)
		if err != nil {
			return err
		}
		f.in.ParentsDepth = &n
		f.stage = stageChildrensParents
	case stageChildrensParents:
		f.in.ChildrensParents = v == "true"
		f.stage = stageIndirect
	case stageIndirect:
		f.in.IndirectSelection = v
		c, err := w.builder.BuildSimple(f.path, f.in)
		if err != nil {
			f.reset()
			return err
		}
		f.built = c
		return w.afterNode(f)
	case stageOperator:
		f.op = criteria.Operator(v)
		f.stage = stageCount
	case stageCount:
		n, err := parseCount("Number of elements", v, l.MinItems, l.MaxItems)
		if err != nil {
			return err
		}
		f.count, f.items = n, nil
		f.stage = stageItems
		w.push(f.path.Item(f.op, 0))
	case stageAddExclusions:
		if v != "true" {
			return w.complete(f.built)
		}
		if err := checkRoom(f.path, l); err != nil {
			return err
		}
		f.stage = stageExclusionCount
	case stageExclusionCount:
		n, err := parseCount("Number of exclusions", v, 1, l.MaxExclusions)
		if err != nil {
			return err
		}
		f.exclCount, f.excls = n, nil
		f.stage = stageExclusions
		w.push(f.path.Exclusion(0))
	}
	return nil
}

// checkRoom fails when a criterion at p has no room for a nested level.
func checkRoom(p criteria.Path, l criteria.Limits) error {
	if d := p.Level() + 2; d > l.MaxDepth {
		return &criteria.DepthExceededError{Path: p.String(), Depth: d, Max: l.MaxDepth}
	}
	return nil
}

// afterNode moves a frame whose node is built to its exclusions question.
// Criteria reached through an exclude edge are never asked.
func (w *Wizard) afterNode(f *frame) error {
	if f.path.InExclude() {
		return w.complete(f.built)
	}
	f.stage = stageAddExclusions
	return nil
}

// complete pops the top frame and hands c to the frame below it, or to the
// session when the root criterion is done.
func (w *Wizard) complete(c criteria.Criterion) error {
	w.stack = w.stack[:len(w.stack)-1]
	if len(w.stack) == 0 {
		if err := w.choose(selectors.Structured{Criterion: c}); err != nil {
			w.stack = []*frame{{path: criteria.Root()}}
			return err
		}
		return nil
	}

	parent := w.top()
	switch parent.stage {
	case stageItems:
		parent.items = append(parent.items, c)
		if len(parent.items) < parent.count {
			w.push(parent.path.Item(parent.op, len(parent.items)))
			return nil
		}
		built, err := w.builder.BuildComposite(parent.path, parent.op, parent.items)
		if err != nil {
			parent.reset()
			return err
		}
		parent.built = built
		return w.afterNode(parent)
	case stageExclusions:
		parent.excls = append(parent.excls, c)
		if len(parent.excls) < parent.exclCount {
			w.push(parent.path.Exclusion(len(parent.excls)))
			return nil
		}
		out, err := w.builder.AttachExclusions(parent.path, parent.built, parent.excls)
		if err != nil {
			parent.excls = nil
			parent.stage = stageAddExclusions
			return err
		}
		return w.complete(out)
	}
	return fmt.Errorf("criterion at %s completed out of order", parent.path)
}

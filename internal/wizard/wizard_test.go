package wizard

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

func newWizard(l criteria.Limits) *Wizard {
	return New(selectors.NewSession(criteria.NewBuilder(l)))
}

// qa answers the current prompt after checking its id.
type qa struct {
	id     string
	answer string
}

func run(t *testing.T, w *Wizard, steps []qa) {
	t.Helper()
	for i, s := range steps {
		p := w.Prompt()
		if p.ID != s.id {
			t.Fatalf("step %d: prompt = %q (%s), want %q", i, p.ID, p.Path, s.id)
		}
		if err := w.Answer(s.answer); err != nil {
			t.Fatalf("step %d (%s = %q): %v", i, s.id, s.answer, err)
		}
	}
}

var meta = []qa{{"name", "nightly"}, {"description", "d"}, {"default", "no"}}

func simpleSteps(method, value string) []qa {
	return []qa{
		{"type", "simple"},
		{"method", method},
		{"value", value},
		{"children", ""},
		{"parents", ""},
		{"childrens_parents", ""},
		{"indirect_selection", ""},
	}
}

func TestInlineDefaults(t *testing.T) {
	w := newWizard(criteria.DefaultLimits())
	run(t, w, []qa{
		{"name", ""}, {"description", ""}, {"default", ""}, {"mode", ""},
		{"inline", ""}, {"finalize", ""}, {"another", ""},
	})
	if !w.Done() {
		t.Fatal("wizard not done")
	}
	want := []selectors.Selector{{
		Name:        DefaultName,
		Description: DefaultDescription,
		Definition:  selectors.Inline(DefaultInline),
	}}
	if diff := cmp.Diff(want, w.Session().Collection().Selectors()); diff != "" {
		t.Errorf("selectors mismatch (-want +got):\n%s", diff)
	}
	if err := w.Answer("x"); !errors.Is(err, ErrDone) {
		t.Errorf("Answer after done = %v, want ErrDone", err)
	}
}

func TestKeyValue(t *testing.T) {
	w := newWizard(criteria.DefaultLimits())
	run(t, w, []qa{
		{"name", "core"}, {"description", "d"}, {"default", "yes"}, {"mode", "keyvalue"},
		{"kv_method", "path"}, {"kv_value", "models/core"}, {"finalize", "y"}, {"another", "n"},
	})
	got := w.Added()
	if len(got) != 1 {
		t.Fatalf("added %d selectors, want 1", len(got))
	}
	want := selectors.KeyValue{Method: criteria.MethodPath, Value: "models/core"}
	if got[0].Definition != want || !got[0].Default {
		t.Errorf("selector = %+v", got[0])
	}
}

func TestStructuredUnionWithExclusion(t *testing.T) {
	w := newWizard(criteria.DefaultLimits())
	steps := append([]qa{}, meta...)
	steps = append(steps, qa{"mode", "structured"})
	steps = append(steps, qa{"type", "composite"}, qa{"operator", "union"}, qa{"count", "2"})
	steps = append(steps, simpleSteps("tag", "nightly")...)
	steps = append(steps, qa{"add_exclusions", "no"})
	steps = append(steps, simpleSteps("path", "models/core")...)
	steps = append(steps, qa{"add_exclusions", "no"})
	steps = append(steps, qa{"add_exclusions", "yes"}, qa{"exclusion_count", "1"})
	steps = append(steps, simpleSteps("tag", "deprecated")...)
	steps = append(steps, qa{"finalize", "yes"}, qa{"another", "no"})
	run(t, w, steps)

	out, err := selectors.Render(w.Session().Collection().Selectors())
	if err != nil {
		t.Fatal(err)
	}
	want := `selectors:
  - name: nightly
    description: d
    default: false
    definition:
      union:
        - method: tag
          value: nightly
          indirect_selection: eager
        - method: path
          value: models/core
          indirect_selection: eager
      exclude:
        - method: tag
          value: deprecated
          indirect_selection: eager
`
	if string(out) != want {
		t.Errorf("Render:\n%s\nwant:\n%s", out, want)
	}
}

func TestExcludedCriterionIsNotAskedForExclusions(t *testing.T) {
	w := newWizard(criteria.DefaultLimits())
	steps := append([]qa{}, meta...)
	steps = append(steps, qa{"mode", "structured"})
	steps = append(steps, simpleSteps("path", "models")...)
	steps = append(steps, qa{"add_exclusions", "yes"}, qa{"exclusion_count", "1"})
	steps = append(steps, simpleSteps("tag", "deprecated")...)
	run(t, w, steps)

	if p := w.Prompt(); p.ID != "finalize" {
		t.Fatalf("prompt after exclusion = %q at %s, want finalize", p.ID, p.Path)
	}
}

func TestPromptPaths(t *testing.T) {
	w := newWizard(criteria.DefaultLimits())
	steps := append([]qa{}, meta...)
	steps = append(steps,
		qa{"mode", "structured"},
		qa{"type", "composite"}, qa{"operator", "intersection"}, qa{"count", "2"},
	)
	run(t, w, steps)
	if got := w.Prompt().Path; got != "root.intersection[0]" {
		t.Errorf("path = %q, want root.intersection[0]", got)
	}

	run(t, w, simpleSteps("tag", "a"))
	run(t, w, []qa{{"add_exclusions", "no"}})
	if got := w.Prompt().Path; got != "root.intersection[1]" {
		t.Errorf("path = %q, want root.intersection[1]", got)
	}
}

func TestGraphOperators(t *testing.T) {
	w := newWizard(criteria.DefaultLimits())
	steps := append([]qa{}, meta...)
	steps = append(steps,
		qa{"mode", "structured"},
		qa{"type", "simple"}, qa{"method", "tag"}, qa{"value", "nightly"},
		qa{"children", "yes"}, qa{"children_depth", "2"},
		qa{"parents", "yes"}, qa{"parents_depth", ""},
		qa{"childrens_parents", "no"}, qa{"indirect_selection", "cautious"},
		qa{"add_exclusions", "no"}, qa{"finalize", "yes"},
	)
	run(t, w, steps)

	sel := w.Added()[0]
	got := sel.Definition.(selectors.Structured).Criterion.Node.(*criteria.Simple)
	want := &criteria.Simple{
		Method:            criteria.MethodTag,
		Value:             "nightly",
		Children:          true,
		ChildrenDepth:     2,
		Parents:           true,
		ParentsDepth:      1,
		IndirectSelection: criteria.IndirectCautious,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("criterion mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidAnswersKeepPrompt(t *testing.T) {
	w := newWizard(criteria.DefaultLimits())
	run(t, w, meta)

	tests := []struct {
		id     string
		answer string
		next   []qa
	}{
		{"mode", "yaml", []qa{{"mode", "structured"}, {"type", "composite"}, {"operator", "union"}}},
		{"count", "1", nil},
		{"count", "11", nil},
		{"count", "many", []qa{{"count", "2"}, {"type", "simple"}, {"method", "tag"}, {"value", "a"}, {"children", "yes"}}},
		{"children_depth", "0", []qa{{"children_depth", "1"}}},
		{"parents", "perhaps", nil},
	}
	for _, tt := range tests {
		if p := w.Prompt(); p.ID != tt.id {
			t.Fatalf("prompt = %q, want %q", p.ID, tt.id)
		}
		if err := w.Answer(tt.answer); err == nil {
			t.Errorf("%s = %q accepted", tt.id, tt.answer)
		}
		if p := w.Prompt(); p.ID != tt.id {
			t.Errorf("prompt after rejected %s = %q", tt.id, p.ID)
		}
		run(t, w, tt.next)
	}
}

func TestDepthGuard(t *testing.T) {
	w := newWizard(criteria.Limits{MaxDepth: 2})
	run(t, w, append(append([]qa{}, meta...),
		qa{"mode", "structured"},
		qa{"type", "composite"}, qa{"operator", "union"}, qa{"count", "2"},
	))

	err := w.Answer("composite")
	var de *criteria.DepthExceededError
	if !errors.As(err, &de) {
		t.Fatalf("nested composite = %v, want *DepthExceededError", err)
	}
	if p := w.Prompt(); p.ID != "type" || p.Path != "root.union[0]" {
		t.Errorf("prompt = %q at %s, want type at root.union[0]", p.ID, p.Path)
	}

	run(t, w, simpleSteps("tag", "a"))
	if err := w.Answer("yes"); !errors.As(err, &de) {
		t.Errorf("exclusions at level 1 = %v, want *DepthExceededError", err)
	}
}

func TestDeclineFinalize(t *testing.T) {
	w := newWizard(criteria.DefaultLimits())
	run(t, w, []qa{
		{"name", "a"}, {"description", ""}, {"default", ""}, {"mode", "inline"},
		{"inline", "tag:a"}, {"finalize", "no"}, {"another", "yes"},
		{"name", "b"}, {"description", ""}, {"default", ""}, {"mode", "inline"},
		{"inline", "tag:b"}, {"finalize", "yes"}, {"another", "no"},
	})
	got := w.Session().Collection().Selectors()
	if len(got) != 1 || got[0].Name != "b" {
		t.Errorf("selectors = %+v, want only b", got)
	}
}

func TestCancel(t *testing.T) {
	w := newWizard(criteria.DefaultLimits())
	run(t, w, []qa{{"name", "a"}, {"description", ""}, {"default", ""}, {"mode", "inline"}})
	w.Cancel()
	if !w.Done() {
		t.Error("wizard not done after Cancel")
	}
	if s := w.Session().State(); s != selectors.StateEmpty {
		t.Errorf("session state = %s, want empty", s)
	}
	if p := w.Prompt(); p.ID != "" {
		t.Errorf("prompt after Cancel = %q", p.ID)
	}
}

// Package wizard walks the decisions behind a selector one question at a
// time. It holds no UI: a front end renders Prompt and feeds answers back to
// Answer until Done.
package wizard

import (
	"errors"
	"slices"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

// Answers used when a prompt is left empty.
const (
	DefaultName        = "my_selector"
	DefaultDescription = "Custom selector for specific models"
	DefaultInline      = "tag:nightly"
	DefaultValue       = "nightly"
)

// ErrDone is returned by Answer once the wizard has finished.
var ErrDone = errors.New("wizard finished")

type step int

const (
	stepName step = iota
	stepDescription
	stepDefault
	stepMode
	stepInline
	stepKVMethod
	stepKVValue
	stepCriterion
	stepFinalize
	stepAnother
	stepDone
)

// Wizard authors selectors into a session. The order of questions is:
// metadata, definition mode, the definition itself, confirmation, and
// whether to author another selector.
type Wizard struct {
	session *selectors.Session
	builder *criteria.Builder
	step    step
	meta    selectors.Meta
	method  criteria.Method
	stack   []*frame
	added   []selectors.Selector
}

// New returns a wizard appending to s.
func New(s *selectors.Session) *Wizard {
	return &Wizard{session: s, builder: s.Collection().Builder()}
}

// Session returns the session the wizard writes to.
func (w *Wizard) Session() *selectors.Session {
	return w.session
}

// Done reports whether the wizard has no more questions.
func (w *Wizard) Done() bool {
	return w.step == stepDone
}

// Added returns the selectors finalized during this run, in order.
func (w *Wizard) Added() []selectors.Selector {
	return slices.Clone(w.added)
}

// Cancel drops the pending selector and ends the wizard. Selectors already
// finalized stay in the session.
func (w *Wizard) Cancel() {
	w.session.Discard()
	w.stack = nil
	w.step = stepDone
}

// Prompt returns the current question. It is the zero Prompt once Done.
func (w *Wizard) Prompt() Prompt {
	switch w.step {
	case stepName:
		return Prompt{ID: "name", Kind: KindText, Label: "Selector name", Default: DefaultName}
	case stepDescription:
		return Prompt{ID: "description", Kind: KindText, Label: "Description", Default: DefaultDescription}
	case stepDefault:
		return Prompt{ID: "default", Kind: KindConfirm, Label: "Set as default selector?", Default: "false"}
	case stepMode:
		return Prompt{
			ID:      "mode",
			Kind:    KindSelect,
			Label:   "Definition type for " + w.meta.Name,
			Help:    "inline: 'tag:nightly'; keyvalue: a single method: value pair; structured: full criteria",
			Options: modeOptions(),
			Default: string(selectors.ModeInline),
		}
	case stepInline:
		return Prompt{
			ID:      "inline",
			Kind:    KindText,
			Label:   "CLI-style definition",
			Help:    "Simple string format like 'tag:nightly' or 'path:models/staging'",
			Default: DefaultInline,
		}
	case stepKVMethod:
		return Prompt{ID: "kv_method", Kind: KindSelect, Label: "Method", Options: methodOptions(), Default: string(criteria.MethodTag)}
	case stepKVValue:
		return Prompt{ID: "kv_value", Kind: KindText, Label: "Value", Default: DefaultValue}
	case stepCriterion:
		return w.top().prompt(w.builder.Limits())
	case stepFinalize:
		return Prompt{ID: "finalize", Kind: KindConfirm, Label: "Add selector " + w.meta.Name + "?", Default: "true"}
	case stepAnother:
		return Prompt{ID: "another", Kind: KindConfirm, Label: "Add another selector?", Default: "false"}
	}
	return Prompt{}
}

// Answer applies an answer to the current prompt. On error the prompt is
// unchanged unless the error came from building a criterion, in which case
// that criterion is asked again from its first question.
func (w *Wizard) Answer(answer string) error {
	if w.step == stepDone {
		return ErrDone
	}
	v, err := w.Prompt().normalize(answer)
	if err != nil {
		return err
	}

	switch w.step {
	case stepName:
		w.meta = selectors.Meta{Name: v}
		w.step = stepDescription
	case stepDescription:
		w.meta.Description = v
		w.step = stepDefault
	case stepDefault:
		w.meta.Default = v == "true"
		if err := w.session.CaptureMetadata(w.meta); err != nil {
			return err
		}
		w.step = stepMode
	case stepMode:
		switch selectors.Mode(v) {
		case selectors.ModeInline:
			w.step = stepInline
		case selectors.ModeKeyValue:
			w.step = stepKVMethod
		case selectors.ModeStructured:
			w.stack = []*frame{{path: criteria.Root()}}
			w.step = stepCriterion
		}
	case stepInline:
		return w.choose(selectors.Inline(v))
	case stepKVMethod:
		w.method = criteria.Method(v)
		w.step = stepKVValue
	case stepKVValue:
		return w.choose(selectors.KeyValue{Method: w.method, Value: v})
	case stepCriterion:
		return w.answerCriterion(v)
	case stepFinalize:
		if v == "true" {
			sel, err := w.session.Finalize()
			if err != nil {
				return err
			}
			w.added = append(w.added, sel)
		} else {
			w.session.Discard()
		}
		w.step = stepAnother
	case stepAnother:
		if v == "true" {
			w.step = stepName
		} else {
			w.step = stepDone
		}
	}
	return nil
}

func (w *Wizard) choose(def selectors.Definition) error {
	if err := w.session.ChooseDefinition(def); err != nil {
		return err
	}
	w.step = stepFinalize
	return nil
}

func modeOptions() []string {
	var out []string
	for _, m := range selectors.Modes() {
		out = append(out, string(m))
	}
	return out
}

func methodOptions() []string {
	var out []string
	for _, m := range criteria.Methods() {
		out = append(out, string(m))
	}
	return out
}

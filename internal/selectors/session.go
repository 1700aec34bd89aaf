package selectors

import (
	"errors"

	"github.com/dohr-michael/dbtsel/internal/criteria"
)

var (
	ErrNoMetadata   = errors.New("no selector metadata captured")
	ErrNoDefinition = errors.New("no selector definition chosen")
)

// State is the authoring state of the pending selector.
type State int

const (
	StateEmpty State = iota
	StateMetadataCaptured
	StateDefinitionChosen
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateMetadataCaptured:
		return "metadata_captured"
	case StateDefinitionChosen:
		return "definition_chosen"
	default:
		return "unknown"
	}
}

// Session is one authoring session: a collection plus the selector being
// authored. The pending selector moves Empty -> MetadataCaptured ->
// DefinitionChosen and is appended by Finalize, which returns the session to
// Empty. Capturing metadata or choosing a definition again before Finalize
// replaces the earlier answer.
type Session struct {
	collection *Collection
	state      State
	meta       Meta
	def        Definition
}

// NewSession returns an empty session validating with b.
func NewSession(b *criteria.Builder) *Session {
	return &Session{collection: NewCollection(b)}
}

// Collection returns the session's selectors.
func (s *Session) Collection() *Collection {
	return s.collection
}

// State returns the pending selector's state.
func (s *Session) State() State {
	return s.state
}

// Pending returns the pending metadata and definition. Either may be zero
// depending on State.
func (s *Session) Pending() (Meta, Definition) {
	return s.meta, s.def
}

// CaptureMetadata records the pending selector's metadata. A definition
// chosen earlier is kept.
func (s *Session) CaptureMetadata(m Meta) error {
	if err := validateMeta(m); err != nil {
		return err
	}
	s.meta = m
	if s.state == StateEmpty {
		s.state = StateMetadataCaptured
	}
	return nil
}

// ChooseDefinition records the pending selector's definition.
func (s *Session) ChooseDefinition(def Definition) error {
	if s.state == StateEmpty {
		return ErrNoMetadata
	}
	if err := validateDefinition(s.collection.builder, def); err != nil {
		return err
	}
	s.def = def
	s.state = StateDefinitionChosen
	return nil
}

// Finalize appends the pending selector to the collection and clears it.
func (s *Session) Finalize() (Selector, error) {
	switch s.state {
	case StateEmpty:
		return Selector{}, ErrNoMetadata
	case StateMetadataCaptured:
		return Selector{}, ErrNoDefinition
	}
	sel, err := s.collection.Add(s.meta, s.def)
	if err != nil {
		return Selector{}, err
	}
	s.Discard()
	return sel, nil
}

// Discard drops the pending selector.
func (s *Session) Discard() {
	s.state = StateEmpty
	s.meta = Meta{}
	s.def = nil
}

// Reset clears every selector and the pending selector.
func (s *Session) Reset() {
	s.collection.Clear()
	s.Discard()
}

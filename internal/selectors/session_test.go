package selectors

import (
	"errors"
	"testing"

	"github.com/dohr-michael/dbtsel/internal/criteria"
)

func newTestSession() *Session {
	return NewSession(criteria.NewBuilder(criteria.DefaultLimits()))
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestSession()
	if s.State() != StateEmpty {
		t.Fatalf("initial state = %s, want empty", s.State())
	}

	if err := s.CaptureMetadata(Meta{Name: "nightly", Description: "d"}); err != nil {
		t.Fatalf("CaptureMetadata: %v", err)
	}
	if s.State() != StateMetadataCaptured {
		t.Errorf("state = %s, want metadata_captured", s.State())
	}

	if err := s.ChooseDefinition(Inline("tag:nightly")); err != nil {
		t.Fatalf("ChooseDefinition: %v", err)
	}
	if s.State() != StateDefinitionChosen {
		t.Errorf("state = %s, want definition_chosen", s.State())
	}

	sel, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if sel.Name != "nightly" || sel.Definition != Inline("tag:nightly") {
		t.Errorf("Finalize = %+v", sel)
	}
	if s.State() != StateEmpty {
		t.Errorf("state after Finalize = %s, want empty", s.State())
	}
	if s.Collection().Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Collection().Len())
	}
	if m, d := s.Pending(); m != (Meta{}) || d != nil {
		t.Errorf("Pending after Finalize = %+v, %v", m, d)
	}
}

func TestSessionOutOfOrder(t *testing.T) {
	s := newTestSession()
	if err := s.ChooseDefinition(Inline("tag:a")); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("ChooseDefinition before metadata = %v, want ErrNoMetadata", err)
	}
	if _, err := s.Finalize(); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("Finalize when empty = %v, want ErrNoMetadata", err)
	}
	if err := s.CaptureMetadata(Meta{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Finalize(); !errors.Is(err, ErrNoDefinition) {
		t.Errorf("Finalize without definition = %v, want ErrNoDefinition", err)
	}
	if s.Collection().Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Collection().Len())
	}
}

func TestSessionInvalidAnswersKeepState(t *testing.T) {
	s := newTestSession()
	if err := s.CaptureMetadata(Meta{}); err == nil {
		t.Fatal("CaptureMetadata accepted an empty name")
	}
	if s.State() != StateEmpty {
		t.Errorf("state = %s, want empty", s.State())
	}

	if err := s.CaptureMetadata(Meta{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ChooseDefinition(KeyValue{Method: "nope", Value: "x"}); err == nil {
		t.Fatal("ChooseDefinition accepted an unknown method")
	}
	if s.State() != StateMetadataCaptured {
		t.Errorf("state = %s, want metadata_captured", s.State())
	}
}

func TestSessionRecaptureKeepsDefinition(t *testing.T) {
	s := newTestSession()
	if err := s.CaptureMetadata(Meta{Name: "first"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ChooseDefinition(Inline("tag:a")); err != nil {
		t.Fatal(err)
	}
	if err := s.CaptureMetadata(Meta{Name: "second", Default: true}); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateDefinitionChosen {
		t.Errorf("state = %s, want definition_chosen", s.State())
	}
	sel, err := s.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if sel.Name != "second" || !sel.Default {
		t.Errorf("Finalize = %+v, want name second default true", sel)
	}
}

func TestSessionDiscard(t *testing.T) {
	s := newTestSession()
	if err := s.CaptureMetadata(Meta{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ChooseDefinition(Inline("tag:a")); err != nil {
		t.Fatal(err)
	}
	s.Discard()
	if s.State() != StateEmpty || s.Collection().Len() != 0 {
		t.Errorf("after Discard: state %s len %d", s.State(), s.Collection().Len())
	}
}

func TestSessionReset(t *testing.T) {
	s := newTestSession()
	if _, err := s.Collection().Add(Meta{Name: "a"}, Inline("tag:a")); err != nil {
		t.Fatal(err)
	}
	if err := s.CaptureMetadata(Meta{Name: "pending"}); err != nil {
		t.Fatal(err)
	}

	s.Reset()
	if s.Collection().Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", s.Collection().Len())
	}
	if s.State() != StateEmpty {
		t.Errorf("state after Reset = %s, want empty", s.State())
	}
}

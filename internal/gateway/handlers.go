package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/events"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

const maxBodyBytes = 1 << 20

// selectorView is the JSON form of a selector.
type selectorView struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
	Mode        string `json:"mode"`
	Definition  any    `json:"definition"`
}

type draftView struct {
	State       string `json:"state"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`
	Mode        string `json:"mode,omitempty"`
	Definition  any    `json:"definition,omitempty"`
}

type metaBody struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     bool   `yaml:"default"`
}

func newSelectorView(i int, sel selectors.Selector) (selectorView, error) {
	def, err := definitionValue(sel.Definition)
	if err != nil {
		return selectorView{}, err
	}
	return selectorView{
		Index:       i,
		Name:        sel.Name,
		Description: sel.Description,
		Default:     sel.Default,
		Mode:        string(sel.Definition.Mode()),
		Definition:  def,
	}, nil
}

// definitionValue converts a definition to plain values for JSON.
func definitionValue(def selectors.Definition) (any, error) {
	var v any
	if err := selectors.DefinitionNode(def).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	return v, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	var history []events.Event
	if id := r.URL.Query().Get("session_id"); id != "" {
		history = s.bus.SessionHistory(id, limit)
	} else {
		history = s.bus.History(limit)
	}

	type eventJSON struct {
		ID        string             `json:"id"`
		SessionID string             `json:"session_id,omitempty"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			SessionID: e.SessionID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	info := s.registry.Create()
	slog.Debug("session created", "session", info.ID)
	s.publish(events.ContextWithSessionID(r.Context(), info.ID), events.SessionCreatedPayload{Selectors: info.Selectors})
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := events.SessionIDFromContext(r.Context())
	info, err := s.registry.Delete(id)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	s.publish(r.Context(), events.SessionClosedPayload{Selectors: info.Selectors})
	n := s.hub.CloseSession(id)
	slog.Debug("session closed", "session", id, "ws_clients", n)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSelectors(w http.ResponseWriter, r *http.Request) {
	views, err := s.listSelectors(events.SessionIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAddSelector(w http.ResponseWriter, r *http.Request) {
	id := events.SessionIDFromContext(r.Context())
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	var view selectorView
	err = s.registry.With(id, func(sess *selectors.Session) error {
		c := sess.Collection()
		parsed, err := selectors.ParseSelector(body, c.Builder())
		if err != nil {
			return err
		}
		sel, err := c.Add(parsed.Meta(), parsed.Definition)
		if err != nil {
			return err
		}
		view, err = newSelectorView(c.Len()-1, sel)
		return err
	})
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	slog.Debug("selector added", "session", id, "index", view.Index, "name", view.Name)
	s.publish(r.Context(), events.SelectorAddedPayload{Index: view.Index, Name: view.Name, Mode: view.Mode})
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleRemoveSelector(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, fmt.Errorf("invalid index %q", chi.URLParam(r, "index")), http.StatusBadRequest)
		return
	}
	view, err := s.removeSelector(r.Context(), index)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	removed, err := s.resetSelectors(r.Context())
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	out, err := s.render(events.SessionIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", selectors.DefaultFileName))
	w.Write(out)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	var view draftView
	err := s.registry.With(events.SessionIDFromContext(r.Context()), func(sess *selectors.Session) error {
		meta, def := sess.Pending()
		view = draftView{
			State:       sess.State().String(),
			Name:        meta.Name,
			Description: meta.Description,
			Default:     meta.Default,
		}
		if def == nil {
			return nil
		}
		view.Mode = string(def.Mode())
		v, err := definitionValue(def)
		view.Definition = v
		return err
	})
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDraftMeta(w http.ResponseWriter, r *http.Request) {
	id := events.SessionIDFromContext(r.Context())
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	var mb metaBody
	dec := yaml.NewDecoder(bytes.NewReader(body))
	dec.KnownFields(true)
	if err := dec.Decode(&mb); err != nil {
		writeError(w, fmt.Errorf("decode metadata: %w", err), http.StatusBadRequest)
		return
	}

	meta := selectors.Meta{Name: mb.Name, Description: mb.Description, Default: mb.Default}
	var state string
	err = s.registry.With(id, func(sess *selectors.Session) error {
		if err := sess.CaptureMetadata(meta); err != nil {
			return err
		}
		state = sess.State().String()
		return nil
	})
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	s.publish(r.Context(), events.DraftMetadataPayload{Name: meta.Name, Description: meta.Description, Default: meta.Default})
	writeJSON(w, http.StatusOK, map[string]string{"state": state})
}

func (s *Server) handleDraftDefinition(w http.ResponseWriter, r *http.Request) {
	id := events.SessionIDFromContext(r.Context())
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	var mode selectors.Mode
	err = s.registry.With(id, func(sess *selectors.Session) error {
		if sess.State() == selectors.StateEmpty {
			return selectors.ErrNoMetadata
		}
		def, err := selectors.ParseDefinition(body, sess.Collection().Builder())
		if err != nil {
			return err
		}
		if err := sess.ChooseDefinition(def); err != nil {
			return err
		}
		mode = def.Mode()
		return nil
	})
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	s.publish(r.Context(), events.DraftDefinitionPayload{Mode: string(mode)})
	writeJSON(w, http.StatusOK, map[string]string{"state": selectors.StateDefinitionChosen.String(), "mode": string(mode)})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id := events.SessionIDFromContext(r.Context())
	var view selectorView
	err := s.registry.With(id, func(sess *selectors.Session) error {
		sel, err := sess.Finalize()
		if err != nil {
			return err
		}
		view, err = newSelectorView(sess.Collection().Len()-1, sel)
		return err
	})
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	slog.Debug("selector added", "session", id, "index", view.Index, "name", view.Name)
	s.publish(r.Context(), events.SelectorAddedPayload{Index: view.Index, Name: view.Name, Mode: view.Mode})
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	id := events.SessionIDFromContext(r.Context())
	var name string
	err := s.registry.With(id, func(sess *selectors.Session) error {
		meta, _ := sess.Pending()
		name = meta.Name
		sess.Discard()
		return nil
	})
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	s.publish(r.Context(), events.DraftDiscardedPayload{Name: name})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSelectors(id string) ([]selectorView, error) {
	views := []selectorView{}
	err := s.registry.With(id, func(sess *selectors.Session) error {
		for i, sel := range sess.Collection().Selectors() {
			v, err := newSelectorView(i, sel)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

func (s *Server) removeSelector(ctx context.Context, index int) (selectorView, error) {
	id := events.SessionIDFromContext(ctx)
	var view selectorView
	err := s.registry.With(id, func(sess *selectors.Session) error {
		sel, err := sess.Collection().Remove(index)
		if err != nil {
			return err
		}
		view, err = newSelectorView(index, sel)
		return err
	})
	if err != nil {
		return selectorView{}, err
	}
	slog.Debug("selector removed", "session", id, "index", index, "name", view.Name)
	s.publish(ctx, events.SelectorRemovedPayload{Index: index, Name: view.Name})
	return view, nil
}

func (s *Server) resetSelectors(ctx context.Context) (int, error) {
	id := events.SessionIDFromContext(ctx)
	var removed int
	err := s.registry.With(id, func(sess *selectors.Session) error {
		removed = sess.Collection().Len()
		sess.Reset()
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, events.SelectorsResetPayload{Removed: removed})
	return removed, nil
}

func (s *Server) render(id string) ([]byte, error) {
	var buf bytes.Buffer
	err := s.registry.With(id, func(sess *selectors.Session) error {
		return selectors.Encode(&buf, sess.Collection().Selectors(), s.indent)
	})
	return buf.Bytes(), err
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

// writeError writes err as {"error": ...}. Known error kinds pick their own
// status; anything else gets fallback.
func writeError(w http.ResponseWriter, err error, fallback int) {
	writeJSON(w, statusFor(err, fallback), map[string]string{"error": err.Error()})
}

func statusFor(err error, fallback int) int {
	var (
		ve *criteria.ValidationError
		de *criteria.DepthExceededError
		ie *selectors.IndexError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &de):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ie), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, selectors.ErrNoMetadata), errors.Is(err, selectors.ErrNoDefinition):
		return http.StatusConflict
	}
	return fallback
}

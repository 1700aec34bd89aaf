package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/events"
	"github.com/dohr-michael/dbtsel/internal/gateway/ws"
)

// waitForEvents polls the bus history until at least n events are present.
func waitForEvents(bus *events.Bus, n int) {
	for i := 0; i < 200; i++ {
		if len(bus.History(100)) >= n {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
}

func newTestServer(t *testing.T) (*Server, *events.Bus) {
	t.Helper()
	bus := events.NewBus(64)
	t.Cleanup(func() { bus.Close() })

	reg := NewRegistry(func() *criteria.Builder { return criteria.NewBuilder(criteria.DefaultLimits()) })
	srv := NewServer(bus, reg, "localhost", 0, 2)
	t.Cleanup(srv.hub.Close)
	return srv, bus
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func createSession(t *testing.T, srv *Server) string {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/api/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", w.Code, w.Body)
	}
	return decode[SessionInfo](t, w).ID
}

const nightlyCore = `name: nightly_core
description: Nightly core models
default: true
definition:
  union:
    - method: tag
      value: nightly
    - method: path
      value: models/core
  exclude:
    - method: tag
      value: deprecated
`

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["status"] != "ok" {
		t.Fatalf("expected status %q, got %q", "ok", body["status"])
	}
}

func TestHandleEvents_Empty(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/api/events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body := decode[[]any](t, w); len(body) != 0 {
		t.Fatalf("expected empty array, got %d items", len(body))
	}
}

func TestHandleEvents_InvalidLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	if w := do(t, srv, http.MethodGet, "/api/events?limit=lots", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv, bus := newTestServer(t)
	id := createSession(t, srv)
	other := createSession(t, srv)

	list := decode[[]SessionInfo](t, do(t, srv, http.MethodGet, "/api/sessions", ""))
	if len(list) != 2 || list[0].ID != id || list[1].ID != other {
		t.Fatalf("sessions = %+v", list)
	}
	if list[0].State != "empty" {
		t.Errorf("state = %q, want empty", list[0].State)
	}

	if w := do(t, srv, http.MethodDelete, "/api/sessions/"+id, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/sessions/"+id+"/selectors", ""); w.Code != http.StatusNotFound {
		t.Fatalf("deleted session: status %d, want 404", w.Code)
	}
	if w := do(t, srv, http.MethodDelete, "/api/sessions/"+id, ""); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", w.Code)
	}

	waitForEvents(bus, 3)
	w := do(t, srv, http.MethodGet, "/api/events?session_id="+id, "")
	history := decode[[]map[string]any](t, w)
	if len(history) != 2 {
		t.Fatalf("expected 2 events for session, got %d", len(history))
	}
	if history[1]["type"] != string(events.EventSessionClosed) {
		t.Errorf("latest event = %v, want session.closed", history[1]["type"])
	}
}

func TestAddSelectorAndDownload(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	w := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/selectors", nightlyCore)
	if w.Code != http.StatusCreated {
		t.Fatalf("add: status %d: %s", w.Code, w.Body)
	}
	view := decode[selectorView](t, w)
	if view.Index != 0 || view.Name != "nightly_core" || view.Mode != "structured" || !view.Default {
		t.Fatalf("view = %+v", view)
	}

	w = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/selectors.yml", "")
	if w.Code != http.StatusOK {
		t.Fatalf("download: status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/yaml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="selectors.yml"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	want := `selectors:
  - name: nightly_core
    description: Nightly core models
    default: true
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
	if got := w.Body.String(); got != want {
		t.Errorf("selectors.yml:\n%s\nwant:\n%s", got, want)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	srv, _ := newTestServer(t)
	a := createSession(t, srv)
	b := createSession(t, srv)

	do(t, srv, http.MethodPost, "/api/sessions/"+a+"/selectors", `{"name": "a", "definition": "tag:a"}`)

	if got := decode[[]selectorView](t, do(t, srv, http.MethodGet, "/api/sessions/"+a+"/selectors", "")); len(got) != 1 {
		t.Errorf("session a has %d selectors, want 1", len(got))
	}
	if got := decode[[]selectorView](t, do(t, srv, http.MethodGet, "/api/sessions/"+b+"/selectors", "")); len(got) != 0 {
		t.Errorf("session b has %d selectors, want 0", len(got))
	}
}

func TestDraftFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/api/sessions/" + createSession(t, srv)

	if w := do(t, srv, http.MethodPut, base+"/draft/definition", "tag:nightly"); w.Code != http.StatusConflict {
		t.Fatalf("definition before metadata: status %d, want 409", w.Code)
	}
	if w := do(t, srv, http.MethodPost, base+"/draft/finalize", ""); w.Code != http.StatusConflict {
		t.Fatalf("finalize empty draft: status %d, want 409", w.Code)
	}
	if w := do(t, srv, http.MethodPut, base+"/draft/meta", `{"name": "nightly", "default": true}`); w.Code != http.StatusOK {
		t.Fatalf("meta: status %d: %s", w.Code, w.Body)
	}
	if w := do(t, srv, http.MethodPost, base+"/draft/finalize", ""); w.Code != http.StatusConflict {
		t.Fatalf("finalize without definition: status %d, want 409", w.Code)
	}
	if w := do(t, srv, http.MethodPut, base+"/draft/definition", "union:\n  - method: tag\n    value: a\n"); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("one-item union: status %d, want 422", w.Code)
	}
	if w := do(t, srv, http.MethodPut, base+"/draft/definition", "tag: nightly"); w.Code != http.StatusOK {
		t.Fatalf("definition: status %d: %s", w.Code, w.Body)
	}

	draft := decode[draftView](t, do(t, srv, http.MethodGet, base+"/draft", ""))
	if draft.State != "definition_chosen" || draft.Name != "nightly" || draft.Mode != "keyvalue" {
		t.Fatalf("draft = %+v", draft)
	}
	if def, ok := draft.Definition.(map[string]any); !ok || def["tag"] != "nightly" {
		t.Errorf("draft definition = %#v", draft.Definition)
	}

	w := do(t, srv, http.MethodPost, base+"/draft/finalize", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("finalize: status %d: %s", w.Code, w.Body)
	}
	if v := decode[selectorView](t, w); v.Index != 0 || v.Name != "nightly" {
		t.Errorf("finalized = %+v", v)
	}
	if draft := decode[draftView](t, do(t, srv, http.MethodGet, base+"/draft", "")); draft.State != "empty" {
		t.Errorf("draft after finalize = %+v", draft)
	}
}

func TestDiscardDraft(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/api/sessions/" + createSession(t, srv)

	do(t, srv, http.MethodPut, base+"/draft/meta", `{"name": "nightly"}`)
	if w := do(t, srv, http.MethodDelete, base+"/draft", ""); w.Code != http.StatusNoContent {
		t.Fatalf("discard: status %d", w.Code)
	}
	if draft := decode[draftView](t, do(t, srv, http.MethodGet, base+"/draft", "")); draft.State != "empty" || draft.Name != "" {
		t.Errorf("draft = %+v", draft)
	}
}

func TestRemoveAndReset(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/api/sessions/" + createSession(t, srv)
	for _, name := range []string{"a", "b", "c"} {
		do(t, srv, http.MethodPost, base+"/selectors", `{"name": "`+name+`", "definition": "tag:`+name+`"}`)
	}

	w := do(t, srv, http.MethodDelete, base+"/selectors/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("remove: status %d: %s", w.Code, w.Body)
	}
	if v := decode[selectorView](t, w); v.Name != "b" {
		t.Errorf("removed %q, want b", v.Name)
	}

	list := decode[[]selectorView](t, do(t, srv, http.MethodGet, base+"/selectors", ""))
	if len(list) != 2 || list[1].Name != "c" || list[1].Index != 1 {
		t.Fatalf("selectors after remove = %+v", list)
	}

	w = do(t, srv, http.MethodPost, base+"/reset", "")
	if got := decode[map[string]int](t, w); got["removed"] != 2 {
		t.Errorf("reset removed %d, want 2", got["removed"])
	}
	if w := do(t, srv, http.MethodGet, base+"/selectors.yml", ""); w.Body.String() != "selectors: []\n" {
		t.Errorf("document after reset = %q", w.Body.String())
	}
}

func TestErrorStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/api/sessions/" + createSession(t, srv)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session", http.MethodGet, "/api/sessions/nope/selectors", "", http.StatusNotFound},
		{"index out of range", http.MethodDelete, base + "/selectors/0", "", http.StatusNotFound},
		{"index not a number", http.MethodDelete, base + "/selectors/first", "", http.StatusBadRequest},
		{"malformed yaml", http.MethodPost, base + "/selectors", "name: [a", http.StatusBadRequest},
		{"unknown selector key", http.MethodPost, base + "/selectors", "name: a\ncolor: red\ndefinition: tag:a\n", http.StatusBadRequest},
		{"missing name", http.MethodPost, base + "/selectors", "definition: tag:a\n", http.StatusUnprocessableEntity},
		{"unknown method", http.MethodPost, base + "/selectors", "name: a\ndefinition:\n  method: colour\n  value: x\n", http.StatusUnprocessableEntity},
		{"exclusion of exclusion", http.MethodPost, base + "/selectors",
			"name: a\ndefinition:\n  method: tag\n  value: a\n  exclude:\n    - method: tag\n      value: b\n      exclude:\n        - method: tag\n          value: c\n",
			http.StatusUnprocessableEntity},
		{"unknown meta field", http.MethodPut, base + "/draft/meta", `{"name": "a", "owner": "me"}`, http.StatusBadRequest},
		{"empty meta name", http.MethodPut, base + "/draft/meta", `{"name": ""}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", w.Code, tt.want, w.Body)
			}
			if body := decode[map[string]string](t, w); body["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestSessionWebSocket(t *testing.T) {
	srv, bus := newTestServer(t)
	id := createSession(t, srv)

	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/sessions/"+id+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// read skips a session.created event that may race the subscription.
	read := func() ws.Frame {
		t.Helper()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			f, err := ws.UnmarshalFrame(data)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if f.Event == string(events.EventSessionCreated) {
				continue
			}
			return f
		}
	}

	req, _ := ws.MarshalFrame(ws.Frame{Type: ws.FrameTypeRequest, ID: "1", Method: string(ws.MethodListSelectors)})
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := read()
	if f.Type != ws.FrameTypeResponse || f.ID != "1" || f.OK == nil || !*f.OK || string(f.Payload) != "[]" {
		t.Fatalf("list response = %+v (%s)", f, f.Payload)
	}

	do(t, srv, http.MethodPost, "/api/sessions/"+id+"/selectors", `{"name": "a", "definition": "tag:a"}`)
	f = read()
	if f.Type != ws.FrameTypeEvent || f.Event != string(events.EventSelectorAdded) || f.SessionID != id {
		t.Fatalf("event frame = %+v", f)
	}

	req, _ = ws.MarshalFrame(ws.Frame{Type: ws.FrameTypeRequest, ID: "2", Method: string(ws.MethodRemoveSelector), Params: json.RawMessage(`{"index": 5}`)})
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatalf("write: %v", err)
	}
	f = read()
	if f.ID != "2" || f.OK == nil || *f.OK || !strings.Contains(f.Error, "out of range") {
		t.Fatalf("remove response = %+v", f)
	}

	req, _ = ws.MarshalFrame(ws.Frame{Type: ws.FrameTypeRequest, ID: "3", Method: string(ws.MethodResetSelectors)})
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		if f = read(); f.Event == string(events.EventSelectorsReset) {
			break
		}
	}
	if f.SessionID != id {
		t.Errorf("reset event session = %q, want %q", f.SessionID, id)
	}
	var sawReset bool
	for _, e := range bus.SessionHistory(id, 10) {
		if e.Type == events.EventSelectorsReset {
			sawReset = true
			if e.Source != events.SourceWS {
				t.Errorf("reset event source = %q, want %q", e.Source, events.SourceWS)
			}
		}
	}
	if !sawReset {
		t.Error("reset event missing from session history")
	}
}

func TestDeleteSessionClosesWebSockets(t *testing.T) {
	srv, _ := newTestServer(t)
	doomed := createSession(t, srv)
	kept := createSession(t, srv)

	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dial := func(id string) *websocket.Conn {
		t.Helper()
		conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/sessions/"+id+"/ws", nil)
		if err != nil {
			t.Fatalf("dial %s: %v", id, err)
		}
		return conn
	}
	conn := dial(doomed)
	defer conn.Close(websocket.StatusNormalClosure, "")
	other := dial(kept)
	defer other.Close(websocket.StatusNormalClosure, "")

	for i := 0; i < 200 && srv.hub.Clients() < 2; i++ {
		time.Sleep(time.Millisecond)
	}
	if n := srv.hub.Clients(); n != 2 {
		t.Fatalf("hub has %d clients, want 2", n)
	}

	if w := do(t, srv, http.MethodDelete, "/api/sessions/"+doomed, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}

	for {
		_, _, err := conn.Read(ctx)
		if err == nil {
			continue
		}
		if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure {
			t.Fatalf("read after delete: %v (status %d), want normal closure", err, status)
		}
		break
	}
	if n := srv.hub.Clients(); n != 1 {
		t.Errorf("hub has %d clients after delete, want 1", n)
	}
}

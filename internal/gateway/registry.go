package gateway

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionInfo summarizes an authoring session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Selectors int       `json:"selectors"`
	State     string    `json:"state"`
}

type entry struct {
	mu        sync.Mutex
	session   *selectors.Session
	createdAt time.Time
}

// Registry holds isolated authoring sessions keyed by id. Each session is
// guarded by its own mutex; sessions never share state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	builder  func() *criteria.Builder
}

// NewRegistry creates a registry. builder is called for every new session,
// so sessions pick up the limits current at creation time.
func NewRegistry(builder func() *criteria.Builder) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		builder:  builder,
	}
}

// Create opens a new empty session and returns its id.
func (r *Registry) Create() SessionInfo {
	e := &entry{
		session:   selectors.NewSession(r.builder()),
		createdAt: time.Now(),
	}
	id := uuid.NewString()

	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()

	return e.info(id)
}

// Delete closes a session.
func (r *Registry) Delete(id string) (SessionInfo, error) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return SessionInfo{}, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info(id), nil
}

// Exists reports whether id names an open session.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// With runs fn with exclusive access to the session.
func (r *Registry) With(id string, fn func(*selectors.Session) error) error {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// List returns every open session, oldest first.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]SessionInfo, 0, len(r.sessions))
	for id, e := range r.sessions {
		e.mu.Lock()
		list = append(list, e.info(id))
		e.mu.Unlock()
	}
	slices.SortFunc(list, func(a, b SessionInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return list
}

func (e *entry) info(id string) SessionInfo {
	return SessionInfo{
		ID:        id,
		CreatedAt: e.createdAt,
		Selectors: e.session.Collection().Len(),
		State:     e.session.State().String(),
	}
}

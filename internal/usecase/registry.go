package usecase

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

// SessionRegistry hosts one Session per id and restores sessions from the
// store the first time they are requested after a restart.
type SessionRegistry struct {
	deps  SessionDeps
	newID func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionRegistry constructs a registry sharing deps across sessions.
func NewSessionRegistry(deps SessionDeps) *SessionRegistry {
	return &SessionRegistry{
		deps:     deps,
		newID:    func() string { return ulid.Make().String() },
		sessions: map[string]*Session{},
	}
}

// Create starts a new session in the Uploading step.
func (r *SessionRegistry) Create(ctx domain.Context) (*Session, error) {
	id := r.newID()
	s := NewSession(ctx, id, r.deps)
	if err := r.deps.Store.SaveSession(ctx, id, s.Snapshot().SessionState); err != nil {
		observability.RecordStoreError("save_session")
		return nil, fmt.Errorf("op=registry.Create: %w", err)
	}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	observability.SessionOpened()
	observability.LoggerFromContext(ctx).Info("session created", slog.String("session_id", id))
	return s, nil
}

// Get returns the hosted session or restores it from the store, running the
// resume check once on restore.
func (r *SessionRegistry) Get(ctx domain.Context, id string) (*Session, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, fmt.Errorf("%w: malformed session id", domain.ErrInvalidArgument)
	}
	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		return s, nil
	}
	st, ok, err := r.deps.Store.LoadSession(ctx, id)
	if err != nil {
		r.mu.Unlock()
		observability.RecordStoreError("load_session")
		return nil, fmt.Errorf("op=registry.Get: %w", err)
	}
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	s := RestoreSession(ctx, id, r.deps, st)
	r.sessions[id] = s
	r.mu.Unlock()
	observability.SessionOpened()

	// The check may issue a question; it runs outside the registry lock.
	if _, prompted, err := s.CheckResume(ctx); err == nil && prompted {
		observability.LoggerFromContext(ctx).Info("restored session awaits resume decision", slog.String("session_id", id))
	}
	return s, nil
}

// Len returns the number of hosted sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll stops every hosted session; used on shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.Close()
		observability.SessionClosed()
		delete(r.sessions, id)
	}
}

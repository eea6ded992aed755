// Package memory provides in-process implementations of the session store and
// the archive repository, used in dev mode and tests.
package memory

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

// Store keeps sessions, resume flags and archive records in maps.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]domain.SessionState
	inProgress map[string]bool
	records    []domain.CandidateRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		sessions:   map[string]domain.SessionState{},
		inProgress: map[string]bool{},
	}
}

// LoadSession returns a copy of the stored state.
func (s *Store) LoadSession(_ domain.Context, id string) (domain.SessionState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[id]
	if !ok {
		return domain.SessionState{}, false, nil
	}
	return st.Clone(), true, nil
}

// SaveSession replaces the stored state.
func (s *Store) SaveSession(_ domain.Context, id string, st domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = st.Clone()
	return nil
}

// InterviewInProgress reads the resume flag.
func (s *Store) InterviewInProgress(_ domain.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inProgress[id], nil
}

// SetInterviewInProgress writes the resume flag.
func (s *Store) SetInterviewInProgress(_ domain.Context, id string, v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.inProgress[id] = true
	} else {
		delete(s.inProgress, id)
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(domain.Context) error { return nil }

// List returns archive records ordered by position.
func (s *Store) List(domain.Context) ([]domain.CandidateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CandidateRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	slices.SortStableFunc(out, func(a, b domain.CandidateRecord) int { return cmp.Compare(a.Position, b.Position) })
	return out, nil
}

// Upsert replaces the record with the same email in place or appends rec
// after the last position.
func (s *Store) Upsert(_ domain.Context, rec domain.CandidateRecord) (domain.CandidateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 0
	for i, r := range s.records {
		if strings.EqualFold(r.Email, rec.Email) {
			rec.ID = r.ID
			rec.Position = r.Position
			s.records[i] = rec.Clone()
			return rec.Clone(), nil
		}
		next = max(next, r.Position+1)
	}
	rec.Position = next
	s.records = append(s.records, rec.Clone())
	return rec.Clone(), nil
}

// Delete removes the record with id.
func (s *Store) Delete(_ domain.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == id {
			s.records = slices.Delete(s.records, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("op=memory.Delete: %w: candidate %s", domain.ErrNotFound, id)
}

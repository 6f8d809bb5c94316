package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/tmoana/uvwatch/internal/domain/exposure"
)

type sessionRecord struct {
	state     exposure.SessionState
	expiresAt time.Time
}

// MemoryStore is an in-memory session store for tests/dev.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionRecord
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]sessionRecord)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (exposure.SessionState, bool, error) {
	if sessionID == "" {
		return exposure.SessionState{}, false, nil
	}
	s.mu.RLock()
	record, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return exposure.SessionState{}, false, nil
	}
	if hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return exposure.SessionState{}, false, nil
	}
	return record.state, true, nil
}

// Save stores the session state with an optional TTL.
func (s *MemoryStore) Save(_ context.Context, sessionID string, state exposure.SessionState, ttl time.Duration) error {
	if sessionID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.sessions[sessionID] = sessionRecord{state: state, expiresAt: exp}
	return nil
}

// Delete removes the session state.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(time.Now())
}

var _ Store = (*MemoryStore)(nil)

package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory storage. Suitable for
// single-process deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	done     chan struct{}
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}

	// Start cleanup goroutine
	go ms.cleanup()

	return ms
}

// Get retrieves a session by id
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[id]
	if !exists || s.Expired() {
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate stored state without Save.
	cp := *s
	if s.Impersonation != nil {
		imp := *s.Impersonation
		cp.Impersonation = &imp
	}
	return &cp, nil
}

// Save persists a session
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	if s.Impersonation != nil {
		imp := *s.Impersonation
		cp.Impersonation = &imp
	}
	m.sessions[s.ID] = &cp
	return nil
}

// Delete removes a session
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// cleanup periodically removes expired sessions
func (m *MemoryStore) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for id, s := range m.sessions {
				if now.After(s.ExpiresAt) {
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// Close closes the memory store
func (m *MemoryStore) Close() error {
	close(m.done)
	return nil
}

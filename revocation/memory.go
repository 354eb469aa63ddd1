package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory revocation list.
//
// Entries carry their own deadline and are dropped lazily once passed. It is
// not shared between processes.
type MemoryStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty list. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		revoked: make(map[string]time.Time),
		now:     now,
	}
}

func (m *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	deadline, ok := m.revoked[tokenID]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !m.now().Before(deadline) {
		m.mu.Lock()
		if d, still := m.revoked[tokenID]; still && d.Equal(deadline) {
			delete(m.revoked, tokenID)
		}
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.revoked[tokenID] = m.now().Add(ttl)
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries, including ones not yet pruned.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.revoked)
}

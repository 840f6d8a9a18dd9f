package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryList is the single-process default. Entries are purged lazily on
// lookup and in bulk when the map grows past a threshold.
type MemoryList struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryList constructs an empty in-memory revocation list.
func NewMemoryList() *MemoryList {
	return &MemoryList{entries: make(map[string]time.Time)}
}

// Revoke marks the session ID until its expiry.
func (l *MemoryList) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" || ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) > 4096 {
		l.purgeLocked(time.Now())
	}
	l.entries[sessionID] = time.Now().Add(ttl)
	return nil
}

// IsRevoked reports whether the session ID is revoked and unexpired.
func (l *MemoryList) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry, ok := l.entries[sessionID]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(l.entries, sessionID)
		return false, nil
	}
	return true, nil
}

func (l *MemoryList) purgeLocked(now time.Time) {
	for id, expiry := range l.entries {
		if now.After(expiry) {
			delete(l.entries, id)
		}
	}
}

package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore keeps session records in process memory. Single-node and test
// deployments use it directly; production uses the Redis store with the same
// contract. Reads return detached copies so no consumer ever observes a
// partially-updated identity.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, record Record) error {
	if record.SessionID == "" {
		return errors.New("session ID cannot be empty")
	}
	if !record.ExpiresAt.After(s.now()) {
		return errors.New("session is already expired")
	}

	record.Identity = record.Identity.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SessionID] = record
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (Record, error) {
	if sessionID == "" {
		return Record{}, ErrNoSession
	}

	s.mu.RLock()
	record, ok := s.records[sessionID]
	s.mu.RUnlock()

	if !ok {
		return Record{}, ErrNoSession
	}

	if !record.ExpiresAt.After(s.now()) {
		s.mu.Lock()
		delete(s.records, sessionID)
		s.mu.Unlock()
		return Record{}, ErrNoSession
	}

	record.Identity = record.Identity.Clone()
	return record, nil
}

// Delete is idempotent: removing an absent session is not an error.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

// MemoryRevocationList is the in-process denylist counterpart to MemoryStore.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	now func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryRevocationList) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[sessionID] = until
	return nil
}

func (l *MemoryRevocationList) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	l.mu.RLock()
	until, ok := l.entries[sessionID]
	l.mu.RUnlock()

	if !ok {
		return false, nil
	}

	// entry outlived the token it was guarding; drop it
	if l.now().After(until) {
		l.mu.Lock()
		delete(l.entries, sessionID)
		l.mu.Unlock()
		return false, nil
	}

	return true, nil
}

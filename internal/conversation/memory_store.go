package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMaxSessions = 10000
	defaultSessionTTL  = 30 * time.Minute
)

// MemorySessionStore keeps sessions in a bounded LRU whose entries expire
// after the configured TTL.
type MemorySessionStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Session]
}

// NewMemorySessionStore creates an in-process session store
func NewMemorySessionStore(maxSessions int, ttl time.Duration) *MemorySessionStore {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &MemorySessionStore{
		cache: expirable.NewLRU[string, *Session](maxSessions, nil, ttl),
	}
}

// Load returns a copy of the stored session
func (m *MemorySessionStore) Load(_ context.Context, chatID string) (*Session, error) {
	s, ok := m.cache.Get(chatID)
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// Save stores a copy of session if nobody saved the chat since it was loaded
func (m *MemorySessionStore) Save(_ context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if stored, ok := m.cache.Get(session.ChatID); ok {
		current = stored.Revision
	}
	if current != session.Revision {
		return ErrSessionConflict
	}

	session.Revision++
	m.cache.Add(session.ChatID, session.Clone())
	return nil
}

// Delete removes the chat's session
func (m *MemorySessionStore) Delete(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(chatID)
	return nil
}

// Len returns the number of live sessions
func (m *MemorySessionStore) Len() int {
	return m.cache.Len()
}

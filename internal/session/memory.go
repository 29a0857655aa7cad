package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation for tests and development.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

func clone(s *Session) *Session {
	cp := *s
	cp.Lists = append([]ListRef(nil), s.Lists...)
	cp.Tasks = append([]TaskRef(nil), s.Tasks...)
	cp.TrackedStatuses = append([]string(nil), s.TrackedStatuses...)
	cp.AvailableStatuses = append([]string(nil), s.AvailableStatuses...)
	cp.TempStatusSelection = append([]string(nil), s.TempStatusSelection...)
	return &cp
}

// Get returns a copy of the stored session or a default one.
func (m *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		return clone(sess), nil
	}
	return New(userID), nil
}

// Update applies fn under the store lock and persists the result.
func (m *MemoryStore) Update(_ context.Context, userID int64, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok {
		sess = New(userID)
	} else {
		sess = clone(sess)
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()
	m.sessions[userID] = sess
	return clone(sess), nil
}

// ResetAuth clears auth, cursor, and tracked statuses for the user.
func (m *MemoryStore) ResetAuth(ctx context.Context, userID int64) error {
	_, err := m.Update(ctx, userID, func(sess *Session) error {
		sess.ResetAuth()
		return nil
	})
	return err
}

// Delete removes the record entirely.
func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// All enumerates every stored session ordered by user id.
func (m *MemoryStore) All(_ context.Context) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, clone(sess))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

var _ Store = (*MemoryStore)(nil)

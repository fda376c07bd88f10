package store

import (
	"context"
	"sync"

	"github.com/memolab/memory-server/game/engine"
)

// stored is one versioned session document.
type stored struct {
	sess    *engine.Session
	version Version
}

// Memory is an in-memory SessionStore. Sessions are deep-copied on the
// way in and out so callers never share mutable state with the store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]stored
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]stored)}
}

// Create persists a new session at version 1.
func (m *Memory) Create(ctx context.Context, sess *engine.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sess.ID]; exists {
		return ErrAlreadyExists
	}
	m.sessions[sess.ID] = stored{sess: sess.Clone(), version: 1}
	return nil
}

// Load returns a copy of the stored session and its version.
func (m *Memory) Load(ctx context.Context, id string) (*engine.Session, Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.sessions[id]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return doc.sess.Clone(), doc.version, nil
}

// CompareAndSwap replaces the stored state only when expected matches the
// current version.
func (m *Memory) CompareAndSwap(ctx context.Context, id string, expected Version, sess *engine.Session) (Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.sessions[id]
	if !ok {
		return 0, ErrNotFound
	}
	if doc.version != expected {
		return 0, ErrVersionConflict
	}

	next := expected + 1
	m.sessions[id] = stored{sess: sess.Clone(), version: next}
	return next, nil
}

// Delete removes a session.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// ListByPlayer returns the player's sessions that have not ended.
func (m *Memory) ListByPlayer(ctx context.Context, playerID string) ([]*engine.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*engine.Session
	for _, doc := range m.sessions {
		if doc.sess.IsMember(playerID) && !doc.sess.IsEnded() {
			result = append(result, doc.sess.Clone())
		}
	}
	return result, nil
}

// Package store provides durable keyed storage for game sessions.
//
// The engine does not depend on any storage query language, only on the
// atomic read-modify-write primitives defined by SessionStore: Load
// returns the current state with its version, and CompareAndSwap persists
// a new state only when the caller's version is still current. The
// session package builds per-session serialization on top of these
// primitives.
//
// Two implementations are provided: an in-memory store for tests and
// ephemeral deployments, and a SQLite store that keeps each session as a
// versioned JSON document.
package store

import (
	"context"
	"errors"

	"github.com/memolab/memory-server/game/engine"
)

var (
	// ErrNotFound is returned when no session exists for an identifier.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyExists is returned when creating a session whose
	// identifier is already taken.
	ErrAlreadyExists = errors.New("session already exists")

	// ErrVersionConflict is returned when a compare-and-swap loses a race:
	// the stored version no longer matches the caller's expected version.
	ErrVersionConflict = errors.New("session version conflict")
)

// Version is a session document's monotonically increasing revision.
type Version int64

// SessionStore is the durable storage contract for game sessions.
type SessionStore interface {
	// Create persists a new session at version 1.
	Create(ctx context.Context, sess *engine.Session) error

	// Load returns a copy of the stored session and its current version.
	Load(ctx context.Context, id string) (*engine.Session, Version, error)

	// CompareAndSwap replaces the stored state only if expected is still
	// the current version, returning the new version on success and
	// ErrVersionConflict otherwise.
	CompareAndSwap(ctx context.Context, id string, expected Version, sess *engine.Session) (Version, error)

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// ListByPlayer returns every session the player is a member of that
	// has not ended.
	ListByPlayer(ctx context.Context, playerID string) ([]*engine.Session, error)
}

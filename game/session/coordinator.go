package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/memolab/memory-server/game/engine"
	"github.com/memolab/memory-server/game/store"
)

// ErrSessionBusy is returned when a session's lock cannot be acquired in
// time, or when persistence keeps conflicting under the lock. Callers may
// retry with backoff.
var ErrSessionBusy = errors.New("session busy")

// DefaultLockTimeout bounds how long a caller waits for a session's lock.
const DefaultLockTimeout = 5 * time.Second

// casAttempts is how many load/apply/persist cycles are tried before a
// version conflict is surfaced as ErrSessionBusy.
const casAttempts = 2

// sessionLock is one session's logical lock. The buffered channel holds
// the single token; refs counts waiters so idle entries can be pruned.
type sessionLock struct {
	token chan struct{}
	refs  int
}

// Coordinator serializes transitions per session identifier on top of a
// SessionStore's read-modify-write primitives.
type Coordinator struct {
	store       store.SessionStore
	lockTimeout time.Duration
	logger      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLockTimeout overrides the lock acquisition timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.lockTimeout = d }
}

// WithLogger sets the coordinator's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// NewCoordinator creates a coordinator over the given store.
func NewCoordinator(st store.SessionStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       st,
		lockTimeout: DefaultLockTimeout,
		logger:      zerolog.Nop(),
		locks:       make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSession acquires exclusive access to the session's logical lock,
// loads the latest durable state, applies fn to a private copy, and
// persists the result via compare-and-swap. The committed state is
// returned as a materialized snapshot. Nothing is persisted when fn
// returns an error.
func (c *Coordinator) WithSession(ctx context.Context, id string, fn func(*engine.Session) error) (*engine.Session, error) {
	lock, err := c.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer c.release(id, lock)

	for attempt := 1; attempt <= casAttempts; attempt++ {
		sess, version, err := c.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := fn(sess); err != nil {
			return nil, err
		}

		_, err = c.store.CompareAndSwap(ctx, id, version, sess)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}

		// A conflict under the lock means some writer bypassed the
		// coordinator. Reload and retry once before giving up.
		c.logger.Warn().
			Str("session_id", id).
			Int("attempt", attempt).
			Msg("compare-and-swap conflict while holding session lock")
	}

	return nil, fmt.Errorf("%w: persistent version conflict on session %s", ErrSessionBusy, id)
}

// acquire takes the session's lock token, waiting up to the configured
// timeout or until ctx is done.
func (c *Coordinator) acquire(ctx context.Context, id string) (*sessionLock, error) {
	c.mu.Lock()
	lock, ok := c.locks[id]
	if !ok {
		lock = &sessionLock{token: make(chan struct{}, 1)}
		c.locks[id] = lock
	}
	lock.refs++
	c.mu.Unlock()

	timer := time.NewTimer(c.lockTimeout)
	defer timer.Stop()

	select {
	case lock.token <- struct{}{}:
		return lock, nil
	case <-ctx.Done():
		c.unref(id, lock)
		return nil, fmt.Errorf("%w: %v", ErrSessionBusy, ctx.Err())
	case <-timer.C:
		c.unref(id, lock)
		return nil, fmt.Errorf("%w: lock wait exceeded %v", ErrSessionBusy, c.lockTimeout)
	}
}

// release returns the lock token and drops the holder's reference.
func (c *Coordinator) release(id string, lock *sessionLock) {
	<-lock.token
	c.unref(id, lock)
}

// unref drops one reference to a lock entry, pruning it from the map once
// nobody holds or waits on it.
func (c *Coordinator) unref(id string, lock *sessionLock) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(c.locks, id)
	}
}

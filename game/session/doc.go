// Package session serializes concurrent game transitions per session.
//
// The store's compare-and-swap alone would reject lost updates, but the
// Coordinator goes further: it guarantees at most one in-flight transition
// per session identifier, so the load/modify/persist cycle behaves as a
// single atomic operation even under concurrent callers. Sessions are
// locked individually; callers operating on different sessions never block
// each other.
//
// Acquisition is bounded: a caller that cannot take a session's lock
// within the configured timeout (or before its context is done) fails with
// ErrSessionBusy and may retry with backoff. A compare-and-swap conflict
// observed while holding the lock indicates an external writer; the
// Coordinator retries the whole cycle once and then surfaces
// ErrSessionBusy rather than letting the conflict escape.
//
// Usage:
//
//	coord := session.NewCoordinator(store)
//	sess, err := coord.WithSession(ctx, id, func(s *engine.Session) error {
//		_, err := s.Advance(player, flipped, time.Now())
//		return err
//	})
//
// The callback receives a private copy of the latest durable state and
// must confine its effects to that copy; nothing is persisted when the
// callback returns an error. Because a conflict retry reruns the callback
// against freshly loaded state, callbacks must be safe to invoke more
// than once.
package session

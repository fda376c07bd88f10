package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/memolab/memory-server/game/engine"
	"github.com/memolab/memory-server/game/store"
)

func testSession(t *testing.T, id string, players ...string) *engine.Session {
	t.Helper()
	pool := engine.CardPool{
		Cards: []engine.Card{
			{CardID: "X", Position: 1},
			{CardID: "X", Position: 2},
			{CardID: "Y", Position: 3},
			{CardID: "Y", Position: 4},
		},
		FirstDrawAt: time.Now(),
	}
	sess, err := engine.NewSession(id, players, pool, time.Now())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return sess
}

func newStoreWith(t *testing.T, sessions ...*engine.Session) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	for _, sess := range sessions {
		if err := st.Create(context.Background(), sess); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	return st
}

func missRefs() []engine.CardRef {
	return []engine.CardRef{
		{CardID: "X", Position: 1},
		{CardID: "Y", Position: 3},
	}
}

func TestWithSession_CommitsResult(t *testing.T) {
	st := newStoreWith(t, testSession(t, "s1", "p1", "p2"))
	coord := NewCoordinator(st)

	committed, err := coord.WithSession(context.Background(), "s1", func(sess *engine.Session) error {
		_, err := sess.Advance("p1", missRefs(), time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("WithSession failed: %v", err)
	}
	if len(committed.RoundHistory) != 1 {
		t.Errorf("expected committed snapshot with 1 round, got %d", len(committed.RoundHistory))
	}

	stored, version, err := st.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(stored.RoundHistory) != 1 {
		t.Errorf("expected 1 persisted round, got %d", len(stored.RoundHistory))
	}
	if version != 2 {
		t.Errorf("expected version 2 after one transition, got %d", version)
	}
}

func TestWithSession_NotFound(t *testing.T) {
	coord := NewCoordinator(store.NewMemory())

	_, err := coord.WithSession(context.Background(), "missing", func(sess *engine.Session) error {
		t.Error("callback must not run for a missing session")
		return nil
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWithSession_CallbackErrorPersistsNothing(t *testing.T) {
	st := newStoreWith(t, testSession(t, "s1", "p1", "p2"))
	coord := NewCoordinator(st)

	boom := errors.New("boom")
	_, err := coord.WithSession(context.Background(), "s1", func(sess *engine.Session) error {
		// Mutate before failing; nothing of this may survive.
		if _, err := sess.Advance("p1", missRefs(), time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	stored, version, err := st.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(stored.RoundHistory) != 0 {
		t.Error("failed transition leaked state into the store")
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}
}

// TestWithSession_SerializesSameSession is the lost-update property: N
// concurrent submissions against one session must all land, exactly once
// each, with history growing by exactly one per accepted flip.
func TestWithSession_SerializesSameSession(t *testing.T) {
	st := newStoreWith(t, testSession(t, "s1", "p1", "p2"))
	coord := NewCoordinator(st)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		player := "p1"
		if i%2 == 1 {
			player = "p2"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.WithSession(context.Background(), "s1", func(sess *engine.Session) error {
				_, err := sess.Advance(player, missRefs(), time.Now())
				return err
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent transition failed: %v", err)
		}
	}

	stored, _, err := st.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(stored.RoundHistory) != workers {
		t.Errorf("lost update: expected %d rounds, got %d", workers, len(stored.RoundHistory))
	}

	// Per-player round numbers must be gapless despite the interleaving.
	perPlayer := make(map[string][]int)
	for _, round := range stored.RoundHistory {
		perPlayer[round.PlayedBy] = append(perPlayer[round.PlayedBy], round.RoundNumber)
	}
	for player, numbers := range perPlayer {
		for i, n := range numbers {
			if n != i+1 {
				t.Errorf("player %s round %d numbered %d", player, i+1, n)
				break
			}
		}
	}
}

// TestWithSession_IndependentSessionsDoNotBlock holds one session's lock
// open and verifies a different session still progresses.
func TestWithSession_IndependentSessionsDoNotBlock(t *testing.T) {
	st := newStoreWith(t,
		testSession(t, "s1", "p1", "p2"),
		testSession(t, "s2", "p1", "p2"),
	)
	coord := NewCoordinator(st)

	holding := make(chan struct{})
	releaseHold := make(chan struct{})
	go func() {
		coord.WithSession(context.Background(), "s1", func(sess *engine.Session) error {
			close(holding)
			<-releaseHold
			return nil
		})
	}()
	<-holding
	defer close(releaseHold)

	done := make(chan error, 1)
	go func() {
		_, err := coord.WithSession(context.Background(), "s2", func(sess *engine.Session) error {
			_, err := sess.Advance("p1", missRefs(), time.Now())
			return err
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("transition on s2 failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("transition on s2 blocked behind s1's lock")
	}
}

func TestWithSession_BusyOnLockTimeout(t *testing.T) {
	st := newStoreWith(t, testSession(t, "s1", "p1", "p2"))
	coord := NewCoordinator(st, WithLockTimeout(50*time.Millisecond))

	holding := make(chan struct{})
	releaseHold := make(chan struct{})
	go func() {
		coord.WithSession(context.Background(), "s1", func(sess *engine.Session) error {
			close(holding)
			<-releaseHold
			return nil
		})
	}()
	<-holding
	defer close(releaseHold)

	_, err := coord.WithSession(context.Background(), "s1", func(sess *engine.Session) error {
		t.Error("callback must not run without the lock")
		return nil
	})
	if !errors.Is(err, ErrSessionBusy) {
		t.Errorf("expected ErrSessionBusy, got %v", err)
	}

	// Nothing may have been applied for the timed-out caller.
	stored, version, loadErr := st.Load(context.Background(), "s1")
	if loadErr != nil {
		t.Fatalf("Load failed: %v", loadErr)
	}
	if len(stored.RoundHistory) != 0 || version != 1 {
		t.Error("timed-out caller left partial effects behind")
	}
}

func TestWithSession_BusyOnCanceledContext(t *testing.T) {
	st := newStoreWith(t, testSession(t, "s1", "p1", "p2"))
	coord := NewCoordinator(st)

	holding := make(chan struct{})
	releaseHold := make(chan struct{})
	go func() {
		coord.WithSession(context.Background(), "s1", func(sess *engine.Session) error {
			close(holding)
			<-releaseHold
			return nil
		})
	}()
	<-holding
	defer close(releaseHold)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := coord.WithSession(ctx, "s1", func(sess *engine.Session) error {
		return nil
	})
	if !errors.Is(err, ErrSessionBusy) {
		t.Errorf("expected ErrSessionBusy, got %v", err)
	}
}

// conflictingStore wraps a SessionStore and forces the first n
// CompareAndSwap calls to conflict, simulating a writer that bypassed the
// coordinator.
type conflictingStore struct {
	store.SessionStore
	mu        sync.Mutex
	conflicts int
}

func (c *conflictingStore) CompareAndSwap(ctx context.Context, id string, expected store.Version, sess *engine.Session) (store.Version, error) {
	c.mu.Lock()
	inject := c.conflicts > 0
	if inject {
		c.conflicts--
	}
	c.mu.Unlock()

	if inject {
		return 0, fmt.Errorf("%w: injected", store.ErrVersionConflict)
	}
	return c.SessionStore.CompareAndSwap(ctx, id, expected, sess)
}

func TestWithSession_RetriesOneConflict(t *testing.T) {
	st := newStoreWith(t, testSession(t, "s1", "p1", "p2"))
	coord := NewCoordinator(&conflictingStore{SessionStore: st, conflicts: 1})

	calls := 0
	_, err := coord.WithSession(context.Background(), "s1", func(sess *engine.Session) error {
		calls++
		_, err := sess.Advance("p1", missRefs(), time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("WithSession failed despite retry budget: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected callback rerun once after conflict, ran %d times", calls)
	}

	stored, _, err := st.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(stored.RoundHistory) != 1 {
		t.Errorf("expected exactly 1 round after retry, got %d", len(stored.RoundHistory))
	}
}

func TestWithSession_PersistentConflictSurfacesBusy(t *testing.T) {
	st := newStoreWith(t, testSession(t, "s1", "p1", "p2"))
	coord := NewCoordinator(&conflictingStore{SessionStore: st, conflicts: 10})

	_, err := coord.WithSession(context.Background(), "s1", func(sess *engine.Session) error {
		_, err := sess.Advance("p1", missRefs(), time.Now())
		return err
	})
	if !errors.Is(err, ErrSessionBusy) {
		t.Errorf("expected ErrSessionBusy for persistent conflicts, got %v", err)
	}
}

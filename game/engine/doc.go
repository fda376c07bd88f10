// Package engine provides the core rules for the matching-pairs memory game.
//
// The engine package implements the game mechanics including:
//   - Card pool generation (sampling, pairing, uniform shuffling)
//   - Turn progression and match resolution
//   - Cyclic turn order across session members
//   - Score calculation from round outcomes
//
// Core Types:
//
// Session is the aggregate root for one played game: its members, the dealt
// card pool, the append-only round history, and the running scoreboard.
// Round records a single flip-pair attempt. CardPool holds the dealt board.
//
// Usage:
//
//	pool, err := engine.GeneratePool(faces, engine.DefaultPairCount, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := engine.NewSession(id, []string{"p1", "p2"}, pool, time.Now())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := sess.Advance("p1", flipped, time.Now())
//
// Game Rules:
//
// Players take turns flipping two cards. A flip matches when both cards
// carry the same card identifier; matches score +100, misses -25. Turn
// order cycles through the session members in their creation order. All
// transitions happen in memory on a Session value; callers are responsible
// for serializing concurrent transitions against the same session (see the
// session package).
package engine

package engine

import (
	"errors"
	"testing"
	"time"
)

// pairPool builds a deterministic pool from the given identifiers: each id
// is dealt twice, positions assigned in order.
func pairPool(ids ...string) CardPool {
	cards := make([]Card, 0, 2*len(ids))
	for i, id := range ids {
		cards = append(cards,
			Card{CardID: id, ImageURL: "https://img.test/" + id + ".png", Position: 2*i + 1},
			Card{CardID: id, ImageURL: "https://img.test/" + id + ".png", Position: 2*i + 2},
		)
	}
	return CardPool{Cards: cards, FirstDrawAt: time.Now()}
}

func newTestSession(t *testing.T, players ...string) *Session {
	t.Helper()
	sess, err := NewSession("game-1", players, pairPool("X", "Y", "Z", "W"), time.Now())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return sess
}

// refs returns the two dealt CardRefs for an identifier in pairPool order.
func refs(id string, first int) [2]CardRef {
	return [2]CardRef{
		{CardID: id, Position: first},
		{CardID: id, Position: first + 1},
	}
}

func TestAdvance_Match(t *testing.T) {
	sess := newTestSession(t, "p1", "p2")

	x := refs("X", 1)
	outcome, err := sess.Advance("p1", []CardRef{x[0], x[1]}, time.Now())
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if outcome.CardFound != "X" {
		t.Errorf("expected card_found X, got %q", outcome.CardFound)
	}
	if !outcome.Matched {
		t.Error("expected matched outcome")
	}
	if len(sess.RoundHistory) != 1 {
		t.Fatalf("expected 1 round, got %d", len(sess.RoundHistory))
	}
	if len(sess.Scores) != 1 || sess.Scores[0].PlayerID != "p1" || sess.Scores[0].Score != 100 {
		t.Errorf("expected p1 score 100, got %+v", sess.Scores)
	}
	if outcome.RoundCount != 0 {
		// One of two players has played: no full cycle completed yet.
		t.Errorf("expected round count 0, got %d", outcome.RoundCount)
	}
	if len(outcome.FoundCards) != 1 || outcome.FoundCards[0] != "X" {
		t.Errorf("expected found cards [X], got %v", outcome.FoundCards)
	}
}

func TestAdvance_NoMatch(t *testing.T) {
	sess := newTestSession(t, "p1", "p2")

	outcome, err := sess.Advance("p1", []CardRef{
		{CardID: "X", Position: 1},
		{CardID: "Y", Position: 3},
	}, time.Now())
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if outcome.CardFound != "" {
		t.Errorf("expected no card found, got %q", outcome.CardFound)
	}
	if outcome.Matched {
		t.Error("expected unmatched outcome")
	}
	if sess.Scores[0].Score != -25 {
		t.Errorf("expected p1 score -25, got %d", sess.Scores[0].Score)
	}
}

func TestAdvance_CyclicTurnOrder(t *testing.T) {
	sess := newTestSession(t, "A", "B", "C")

	moves := []struct {
		player string
		next   string
	}{
		{"A", "B"},
		{"B", "C"},
		{"C", "A"},
	}

	for _, m := range moves {
		_, err := sess.Advance(m.player, []CardRef{
			{CardID: "X", Position: 1},
			{CardID: "Y", Position: 3},
		}, time.Now())
		if err != nil {
			t.Fatalf("Advance for %s failed: %v", m.player, err)
		}
		last := sess.RoundHistory[len(sess.RoundHistory)-1]
		if last.NextPlayer != m.next {
			t.Errorf("after %s expected next player %s, got %s", m.player, m.next, last.NextPlayer)
		}
	}
}

func TestAdvance_RoundNumbersPerPlayer(t *testing.T) {
	sess := newTestSession(t, "p1", "p2")
	miss := []CardRef{{CardID: "X", Position: 1}, {CardID: "Y", Position: 3}}

	for i := 0; i < 3; i++ {
		if _, err := sess.Advance("p1", miss, time.Now()); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if _, err := sess.Advance("p2", miss, time.Now()); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}

	if len(sess.RoundHistory) != 6 {
		t.Fatalf("expected 6 rounds, got %d", len(sess.RoundHistory))
	}
	for i, round := range sess.RoundHistory {
		wantNumber := i/2 + 1
		if round.RoundNumber != wantNumber {
			t.Errorf("round %d: expected per-player number %d, got %d", i, wantNumber, round.RoundNumber)
		}
	}
	if sess.CompletedRounds() != 3 {
		t.Errorf("expected 3 completed rounds, got %d", sess.CompletedRounds())
	}
}

func TestAdvance_ScoreAccumulatesAndUpserts(t *testing.T) {
	sess := newTestSession(t, "p1", "p2")

	x := refs("X", 1)
	y := refs("Y", 3)
	miss := []CardRef{{CardID: "Z", Position: 5}, {CardID: "W", Position: 7}}

	if _, err := sess.Advance("p1", []CardRef{x[0], x[1]}, time.Now()); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if _, err := sess.Advance("p1", miss, time.Now()); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	outcome, err := sess.Advance("p1", []CardRef{y[0], y[1]}, time.Now())
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	// 2 found, 1 missed: 2*100 - 1*25.
	if len(sess.Scores) != 1 {
		t.Fatalf("expected a single score entry for p1, got %d", len(sess.Scores))
	}
	if sess.Scores[0].Score != 175 {
		t.Errorf("expected score 175, got %d", sess.Scores[0].Score)
	}
	if len(outcome.FoundCards) != 2 || outcome.FoundCards[0] != "X" || outcome.FoundCards[1] != "Y" {
		t.Errorf("expected found cards [X Y] in match order, got %v", outcome.FoundCards)
	}
}

func TestAdvance_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		player  string
		flipped []CardRef
		wantErr error
	}{
		{
			name:    "one card",
			player:  "p1",
			flipped: []CardRef{{CardID: "X", Position: 1}},
			wantErr: ErrInvalidMoveShape,
		},
		{
			name:   "three cards",
			player: "p1",
			flipped: []CardRef{
				{CardID: "X", Position: 1},
				{CardID: "X", Position: 2},
				{CardID: "Y", Position: 3},
			},
			wantErr: ErrInvalidMoveShape,
		},
		{
			name:   "same position twice",
			player: "p1",
			flipped: []CardRef{
				{CardID: "X", Position: 1},
				{CardID: "X", Position: 1},
			},
			wantErr: ErrInvalidMoveShape,
		},
		{
			name:   "position not dealt",
			player: "p1",
			flipped: []CardRef{
				{CardID: "X", Position: 1},
				{CardID: "X", Position: 99},
			},
			wantErr: ErrInvalidMoveShape,
		},
		{
			name:   "identifier does not match dealt card",
			player: "p1",
			flipped: []CardRef{
				{CardID: "X", Position: 1},
				{CardID: "X", Position: 3},
			},
			wantErr: ErrInvalidMoveShape,
		},
		{
			name:   "unknown player",
			player: "intruder",
			flipped: []CardRef{
				{CardID: "X", Position: 1},
				{CardID: "X", Position: 2},
			},
			wantErr: ErrUnknownPlayer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newTestSession(t, "p1", "p2")
			_, err := sess.Advance(tt.player, tt.flipped, time.Now())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if len(sess.RoundHistory) != 0 {
				t.Error("rejected move must not append a round")
			}
			if len(sess.Scores) != 0 {
				t.Error("rejected move must not touch the scoreboard")
			}
		})
	}
}

func TestAdvance_EndedSession(t *testing.T) {
	sess := newTestSession(t, "p1", "p2")
	if err := sess.End(time.Now()); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	x := refs("X", 1)
	if _, err := sess.Advance("p1", []CardRef{x[0], x[1]}, time.Now()); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("expected ErrSessionEnded, got %v", err)
	}
}

func TestEnd_Twice(t *testing.T) {
	sess := newTestSession(t, "p1", "p2")
	if err := sess.End(time.Now()); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if err := sess.End(time.Now()); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("expected ErrSessionEnded on double end, got %v", err)
	}
}

func TestRestart(t *testing.T) {
	sess := newTestSession(t, "p1", "p2")

	x := refs("X", 1)
	if _, err := sess.Advance("p1", []CardRef{x[0], x[1]}, time.Now()); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if err := sess.End(time.Now()); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	before := sess.StartedAt
	newPool := pairPool("A", "B", "C", "D")
	restartAt := before.Add(time.Hour)
	if err := sess.Restart(newPool, restartAt); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	if sess.ID != "game-1" {
		t.Errorf("restart must preserve id, got %s", sess.ID)
	}
	if len(sess.Players) != 2 || sess.Players[0] != "p1" || sess.Players[1] != "p2" {
		t.Errorf("restart must preserve membership, got %v", sess.Players)
	}
	if len(sess.RoundHistory) != 0 {
		t.Error("restart must clear round history")
	}
	if len(sess.Scores) != 0 {
		t.Error("restart must clear scores")
	}
	if !sess.StartedAt.Equal(restartAt) {
		t.Errorf("restart must reset started_at, got %v", sess.StartedAt)
	}
	if sess.EndedAt != nil {
		t.Error("restart must clear ended_at")
	}
	if sess.InitialPool.Cards[0].CardID == "X" {
		t.Error("restart must replace the pool")
	}
}

func TestRestart_RejectsInvalidPool(t *testing.T) {
	sess := newTestSession(t, "p1", "p2")

	bad := CardPool{Cards: []Card{{CardID: "X", Position: 1}}}
	if err := sess.Restart(bad, time.Now()); !errors.Is(err, ErrInvalidPool) {
		t.Errorf("expected ErrInvalidPool, got %v", err)
	}
	if len(sess.InitialPool.Cards) != 8 {
		t.Error("failed restart must leave the pool untouched")
	}
}

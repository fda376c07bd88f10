package engine

import (
	"fmt"
	"time"
)

// Outcome summarizes an accepted flip: the session-wide round count, the
// full scoreboard, every match made to date in order, and whether this
// particular flip produced one.
type Outcome struct {
	RoundCount int          `json:"round_count"`
	Scoreboard []ScoreEntry `json:"scoreboard"`
	FoundCards []string     `json:"found_cards"`
	CardFound  string       `json:"card_found,omitempty"`
	Matched    bool         `json:"matched"`
}

// Advance applies one flip-pair attempt by actingPlayer as a single
// in-memory transition: it validates the move, resolves the match,
// computes the next player in the turn cycle, appends the round, and
// upserts the player's score. The session is left unmodified when an
// error is returned.
//
// Callers submitting concurrent flips against the same session must
// serialize them externally; see the session package.
func (s *Session) Advance(actingPlayer string, flipped []CardRef, now time.Time) (*Outcome, error) {
	if s.IsEnded() {
		return nil, ErrSessionEnded
	}
	if err := s.validateFlip(actingPlayer, flipped); err != nil {
		return nil, err
	}

	nextPlayer := s.playerAfter(actingPlayer)

	// The two cards match iff their identifiers are equal; positions only
	// locate the cards on the board.
	cardFound := ""
	if flipped[0].CardID == flipped[1].CardID {
		cardFound = flipped[0].CardID
	}

	roundNumber := 1
	foundCount, missedCount := 0, 0
	for _, r := range s.RoundHistory {
		if r.PlayedBy != actingPlayer {
			continue
		}
		roundNumber++
		if r.CardFound != "" {
			foundCount++
		} else {
			missedCount++
		}
	}
	if cardFound != "" {
		foundCount++
	} else {
		missedCount++
	}

	score := Score(foundCount, missedCount)

	s.RoundHistory = append(s.RoundHistory, Round{
		PlayedBy:     actingPlayer,
		NextPlayer:   nextPlayer,
		FlippedCards: []CardRef{flipped[0], flipped[1]},
		CardFound:    cardFound,
		RoundNumber:  roundNumber,
		PlayedAt:     now,
	})
	s.upsertScore(actingPlayer, score, now)

	return &Outcome{
		RoundCount: s.CompletedRounds(),
		Scoreboard: s.Scoreboard(),
		FoundCards: s.FoundCards(),
		CardFound:  cardFound,
		Matched:    cardFound != "",
	}, nil
}

// Restart re-deals the session: the new pool replaces the old one, history
// and scores are cleared, StartedAt is reset, and any end marker is
// removed. Membership is preserved.
func (s *Session) Restart(pool CardPool, now time.Time) error {
	if err := pool.Validate(); err != nil {
		return err
	}

	s.InitialPool = pool
	s.RoundHistory = nil
	s.Scores = nil
	s.StartedAt = now
	s.EndedAt = nil
	return nil
}

// End marks the session as finished. Ending an already-ended session
// fails with ErrSessionEnded.
func (s *Session) End(now time.Time) error {
	if s.IsEnded() {
		return ErrSessionEnded
	}
	endedAt := now
	s.EndedAt = &endedAt
	return nil
}

// validateFlip checks the move preconditions: exactly two distinct board
// positions, each referencing a card actually dealt in the initial pool,
// submitted by a session member.
func (s *Session) validateFlip(actingPlayer string, flipped []CardRef) error {
	if len(flipped) != FlippedCardsPerRound {
		return fmt.Errorf("%w: %d cards flipped, want %d", ErrInvalidMoveShape, len(flipped), FlippedCardsPerRound)
	}
	if flipped[0].Position == flipped[1].Position {
		return fmt.Errorf("%w: both cards at position %d", ErrInvalidMoveShape, flipped[0].Position)
	}
	for _, ref := range flipped {
		dealt, ok := s.InitialPool.at(ref.Position)
		if !ok {
			return fmt.Errorf("%w: no card at position %d", ErrInvalidMoveShape, ref.Position)
		}
		if dealt.CardID != ref.CardID {
			return fmt.Errorf("%w: card %q not dealt at position %d", ErrInvalidMoveShape, ref.CardID, ref.Position)
		}
	}
	if !s.IsMember(actingPlayer) {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, actingPlayer)
	}
	return nil
}

// playerAfter returns the member immediately following playerID in the
// turn cycle, wrapping from the last member to the first.
func (s *Session) playerAfter(playerID string) string {
	for i, p := range s.Players {
		if p == playerID {
			return s.Players[(i+1)%len(s.Players)]
		}
	}
	return s.Players[0]
}

// upsertScore overwrites the player's score entry in place, creating it on
// first play. A player never has more than one entry.
func (s *Session) upsertScore(playerID string, score int, now time.Time) {
	for i := range s.Scores {
		if s.Scores[i].PlayerID == playerID {
			s.Scores[i].Score = score
			s.Scores[i].LastPlayedAt = now
			return
		}
	}
	s.Scores = append(s.Scores, ScoreEntry{PlayerID: playerID, Score: score, LastPlayedAt: now})
}

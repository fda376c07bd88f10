package engine

import (
	"fmt"
	"slices"
	"time"
)

const (
	// DefaultPairCount is the number of distinct cards sampled for a new
	// pool, yielding a board of 2*DefaultPairCount cards.
	DefaultPairCount = 8

	// MinPlayers is the smallest allowed session membership.
	MinPlayers = 2

	// FlippedCardsPerRound is the number of cards revealed in one round.
	FlippedCardsPerRound = 2
)

// CardFace is a card from the asset catalog: the identity and artwork a
// dealt card is stamped from.
type CardFace struct {
	CardID   string `json:"card_id"`
	ImageURL string `json:"image_url"`
}

// Card is a single dealt card. Immutable once dealt; Position is unique
// within the pool.
type Card struct {
	CardID   string `json:"card_id"`
	ImageURL string `json:"image_url"`
	Position int    `json:"position"`
}

// CardRef identifies a flipped card by identifier and board position.
type CardRef struct {
	CardID   string `json:"card_id"`
	Position int    `json:"position"`
}

// CardPool is the full set of dealt cards for one game instance. Every
// card identifier appears exactly twice and positions form a contiguous
// permutation of 1..len(Cards).
type CardPool struct {
	Cards       []Card    `json:"cards"`
	FirstDrawAt time.Time `json:"first_draw_at"`
}

// Validate checks the pool invariants: even length, exactly two copies of
// every card identifier, and positions forming a permutation of 1..N.
func (p CardPool) Validate() error {
	n := len(p.Cards)
	if n == 0 || n%2 != 0 {
		return fmt.Errorf("%w: %d cards, want a positive even count", ErrInvalidPool, n)
	}

	pairs := make(map[string]int, n/2)
	positions := make(map[int]bool, n)
	for _, c := range p.Cards {
		pairs[c.CardID]++
		if c.Position < 1 || c.Position > n {
			return fmt.Errorf("%w: position %d out of range 1..%d", ErrInvalidPool, c.Position, n)
		}
		if positions[c.Position] {
			return fmt.Errorf("%w: duplicate position %d", ErrInvalidPool, c.Position)
		}
		positions[c.Position] = true
	}

	for id, count := range pairs {
		if count != 2 {
			return fmt.Errorf("%w: card %q appears %d times, want 2", ErrInvalidPool, id, count)
		}
	}

	return nil
}

// at returns the dealt card at a board position, if any.
func (p CardPool) at(position int) (Card, bool) {
	for _, c := range p.Cards {
		if c.Position == position {
			return c, true
		}
	}
	return Card{}, false
}

// Round records one flip-pair attempt and its resolution. Immutable once
// appended to a session's history.
type Round struct {
	PlayedBy     string    `json:"played_by"`
	NextPlayer   string    `json:"next_player"`
	FlippedCards []CardRef `json:"flipped_cards"`

	// CardFound is the matched card identifier, or empty when the flip
	// did not produce a match.
	CardFound string `json:"card_found,omitempty"`

	// RoundNumber is this player's Nth round, a display counter only.
	// Ordering is defined by append order within the session history.
	RoundNumber int       `json:"round_number"`
	PlayedAt    time.Time `json:"played_at"`
}

// ScoreEntry is a player's running score and last-played timestamp. A
// session holds at most one entry per player.
type ScoreEntry struct {
	PlayerID     string    `json:"player_id"`
	Score        int       `json:"score"`
	LastPlayedAt time.Time `json:"last_played_at"`
}

// Session is the aggregate root for one played game instance.
type Session struct {
	ID string `json:"id"`

	// Players is the fixed membership; its order defines the turn cycle.
	Players []string `json:"players"`

	InitialPool CardPool `json:"initial_pool"`

	// RoundHistory is append-only outside of Restart.
	RoundHistory []Round      `json:"round_history"`
	Scores       []ScoreEntry `json:"scores"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// NewSession creates a session with the given membership and dealt pool,
// enforcing the aggregate invariants at creation time.
func NewSession(id string, players []string, pool CardPool, now time.Time) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidSession)
	}
	if len(players) < MinPlayers {
		return nil, fmt.Errorf("%w: %d players, want at least %d", ErrInvalidSession, len(players), MinPlayers)
	}
	for i, p := range players {
		if p == "" {
			return nil, fmt.Errorf("%w: empty player id at index %d", ErrInvalidSession, i)
		}
		if slices.Contains(players[:i], p) {
			return nil, fmt.Errorf("%w: duplicate player %q", ErrInvalidSession, p)
		}
	}
	if err := pool.Validate(); err != nil {
		return nil, err
	}

	return &Session{
		ID:          id,
		Players:     slices.Clone(players),
		InitialPool: pool,
		StartedAt:   now,
	}, nil
}

// IsEnded reports whether the session has received an end signal.
func (s *Session) IsEnded() bool {
	return s.EndedAt != nil
}

// IsMember reports whether a player belongs to the session.
func (s *Session) IsMember(playerID string) bool {
	return slices.Contains(s.Players, playerID)
}

// CompletedRounds is the number of full turn cycles played so far.
func (s *Session) CompletedRounds() int {
	return len(s.RoundHistory) / len(s.Players)
}

// FoundCards returns the identifiers of all matched cards in the order
// the matches were made.
func (s *Session) FoundCards() []string {
	var found []string
	for _, r := range s.RoundHistory {
		if r.CardFound != "" {
			found = append(found, r.CardFound)
		}
	}
	return found
}

// Scoreboard returns a copy of the running scores.
func (s *Session) Scoreboard() []ScoreEntry {
	return slices.Clone(s.Scores)
}

// Clone returns a deep copy of the session, safe to mutate independently.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Players = slices.Clone(s.Players)
	clone.InitialPool.Cards = slices.Clone(s.InitialPool.Cards)
	clone.RoundHistory = make([]Round, len(s.RoundHistory))
	for i, r := range s.RoundHistory {
		r.FlippedCards = slices.Clone(r.FlippedCards)
		clone.RoundHistory[i] = r
	}
	clone.Scores = slices.Clone(s.Scores)
	if s.EndedAt != nil {
		endedAt := *s.EndedAt
		clone.EndedAt = &endedAt
	}
	return &clone
}

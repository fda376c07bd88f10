package service

import (
	"context"
	"time"

	"github.com/memolab/memory-server/game/engine"
)

// GameService defines all game-related operations.
type GameService interface {
	// Lifecycle
	CreateGame(ctx context.Context, players []string) (*GameInfo, error)
	RestartGame(ctx context.Context, id string) (*GameInfo, error)
	EndGame(ctx context.Context, id string) error

	// Progression
	LogProgression(ctx context.Context, id, playerID string, flipped []engine.CardRef) (*ProgressionResult, error)

	// Read models
	ContinueGame(ctx context.Context, id string) (*GameDetail, error)
	CurrentGames(ctx context.Context, playerID string) ([]*GameSummary, error)
}

// GameInfo describes a freshly created or re-dealt game.
type GameInfo struct {
	ID        string          `json:"id"`
	Players   []string        `json:"players"`
	Pool      engine.CardPool `json:"initial_pool"`
	StartedAt time.Time       `json:"started_at"`
}

// GameSummary is the list-view shape for a player's open games.
type GameSummary struct {
	ID        string    `json:"id"`
	Players   []string  `json:"players"`
	StartedAt time.Time `json:"started_at"`
}

// PlayerScore pairs a player with their running score.
type PlayerScore struct {
	PlayerID string `json:"player_id"`
	Score    int    `json:"score"`
}

// GameDetail is the full resume-view of a session: the aggregate plus the
// derived counters a client needs to pick the game back up.
type GameDetail struct {
	Session      *engine.Session `json:"game_data"`
	RoundCount   int             `json:"round_count"`
	RunningScore []PlayerScore   `json:"running_score"`
	FoundCards   []string        `json:"found_cards"`
}

// ProgressionResult is the summary returned for an accepted flip.
type ProgressionResult struct {
	RoundCount   int           `json:"round_count"`
	RunningScore []PlayerScore `json:"running_score"`
	FoundCards   []string      `json:"found_cards"`
	CardFound    string        `json:"card_found,omitempty"`
	Matched      bool          `json:"matched"`
}

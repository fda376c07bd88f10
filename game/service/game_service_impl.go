package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/memolab/memory-server/game/catalog"
	"github.com/memolab/memory-server/game/engine"
	"github.com/memolab/memory-server/game/session"
	"github.com/memolab/memory-server/game/store"
)

// gameServiceImpl implements the GameService interface.
type gameServiceImpl struct {
	catalog   catalog.Catalog
	store     store.SessionStore
	coord     *session.Coordinator
	pairCount int
	logger    zerolog.Logger
}

// ServiceOption configures the game service.
type ServiceOption func(*gameServiceImpl)

// WithPairCount overrides the number of card pairs dealt per game.
func WithPairCount(n int) ServiceOption {
	return func(s *gameServiceImpl) { s.pairCount = n }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *gameServiceImpl) { s.logger = logger }
}

// NewGameService creates a new game service instance.
func NewGameService(cat catalog.Catalog, st store.SessionStore, coord *session.Coordinator, opts ...ServiceOption) GameService {
	s := &gameServiceImpl{
		catalog:   cat,
		store:     st,
		coord:     coord,
		pairCount: engine.DefaultPairCount,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame deals a fresh pool from the catalog and persists a new
// session for the given members.
func (s *gameServiceImpl) CreateGame(ctx context.Context, players []string) (*GameInfo, error) {
	pool, err := s.dealPool(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := engine.NewSession(uuid.NewString(), players, pool, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.logger.Info().
		Str("session_id", sess.ID).
		Int("players", len(sess.Players)).
		Int("cards", len(pool.Cards)).
		Msg("game created")

	return gameInfo(sess), nil
}

// RestartGame re-deals the session's pool and clears its history and
// scores, preserving identifier and membership.
func (s *gameServiceImpl) RestartGame(ctx context.Context, id string) (*GameInfo, error) {
	// Pool generation is independent of session state, so it runs before
	// the session lock is taken.
	pool, err := s.dealPool(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess, err := s.coord.WithSession(ctx, id, func(sess *engine.Session) error {
		return sess.Restart(pool, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("session_id", id).Msg("game restarted")
	return gameInfo(sess), nil
}

// EndGame marks the session as finished.
func (s *gameServiceImpl) EndGame(ctx context.Context, id string) error {
	now := time.Now()
	_, err := s.coord.WithSession(ctx, id, func(sess *engine.Session) error {
		return sess.End(now)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("session_id", id).Msg("game ended")
	return nil
}

// LogProgression submits one flip-pair attempt through the coordinator.
func (s *gameServiceImpl) LogProgression(ctx context.Context, id, playerID string, flipped []engine.CardRef) (*ProgressionResult, error) {
	now := time.Now()

	var outcome *engine.Outcome
	_, err := s.coord.WithSession(ctx, id, func(sess *engine.Session) error {
		var err error
		outcome, err = sess.Advance(playerID, flipped, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("session_id", id).
		Str("player_id", playerID).
		Bool("matched", outcome.Matched).
		Int("round_count", outcome.RoundCount).
		Msg("progression logged")

	return &ProgressionResult{
		RoundCount:   outcome.RoundCount,
		RunningScore: playerScores(outcome.Scoreboard),
		FoundCards:   outcome.FoundCards,
		CardFound:    outcome.CardFound,
		Matched:      outcome.Matched,
	}, nil
}

// ContinueGame returns the resume-view of a session: the aggregate plus
// the derived round count, running scores, and matches made so far.
func (s *gameServiceImpl) ContinueGame(ctx context.Context, id string) (*GameDetail, error) {
	sess, _, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	return &GameDetail{
		Session:      sess,
		RoundCount:   sess.CompletedRounds(),
		RunningScore: playerScores(sess.Scoreboard()),
		FoundCards:   sess.FoundCards(),
	}, nil
}

// CurrentGames returns the open sessions the player is a member of,
// newest first.
func (s *gameServiceImpl) CurrentGames(ctx context.Context, playerID string) ([]*GameSummary, error) {
	sessions, err := s.store.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})

	summaries := make([]*GameSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, &GameSummary{
			ID:        sess.ID,
			Players:   sess.Players,
			StartedAt: sess.StartedAt,
		})
	}
	return summaries, nil
}

// dealPool snapshots the catalog and generates a shuffled pool.
func (s *gameServiceImpl) dealPool(ctx context.Context) (engine.CardPool, error) {
	faces, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return engine.CardPool{}, fmt.Errorf("failed to snapshot catalog: %w", err)
	}
	return engine.GeneratePool(faces, s.pairCount, nil)
}

func gameInfo(sess *engine.Session) *GameInfo {
	return &GameInfo{
		ID:        sess.ID,
		Players:   sess.Players,
		Pool:      sess.InitialPool,
		StartedAt: sess.StartedAt,
	}
}

func playerScores(entries []engine.ScoreEntry) []PlayerScore {
	scores := make([]PlayerScore, 0, len(entries))
	for _, e := range entries {
		scores = append(scores, PlayerScore{PlayerID: e.PlayerID, Score: e.Score})
	}
	return scores
}

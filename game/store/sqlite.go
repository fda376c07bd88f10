package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/memolab/memory-server/game/engine"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS memory_sessions (
	id      TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	ended   INTEGER NOT NULL DEFAULT 0,
	state   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS memory_session_players (
	session_id TEXT NOT NULL REFERENCES memory_sessions(id) ON DELETE CASCADE,
	player_id  TEXT NOT NULL,
	PRIMARY KEY (session_id, player_id)
);
CREATE INDEX IF NOT EXISTS idx_session_players_player
	ON memory_session_players(player_id);`

// SQLite is a SessionStore keeping each session as a versioned JSON
// document, with a membership index table for player lookups. Membership
// is immutable after creation, so the index is written once.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates the session tables if needed and returns a store over
// the given database handle.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(sessionsSchema); err != nil {
		return nil, fmt.Errorf("failed to create session tables: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Create persists a new session at version 1 along with its membership
// index rows, in one transaction.
func (s *SQLite) Create(ctx context.Context, sess *engine.Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_sessions WHERE id = ?`, sess.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists > 0 {
		return ErrAlreadyExists
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memory_sessions (id, version, ended, state) VALUES (?, 1, ?, ?)`,
		sess.ID, boolToInt(sess.IsEnded()), string(state))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for _, player := range sess.Players {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO memory_session_players (session_id, player_id) VALUES (?, ?)`,
			sess.ID, player)
		if err != nil {
			return fmt.Errorf("failed to index player %q: %w", player, err)
		}
	}

	return tx.Commit()
}

// Load returns the stored session and its current version.
func (s *SQLite) Load(ctx context.Context, id string) (*engine.Session, Version, error) {
	var (
		version Version
		state   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, state FROM memory_sessions WHERE id = ?`, id).Scan(&version, &state)
	if err == sql.ErrNoRows {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load session: %w", err)
	}

	var sess engine.Session
	if err := json.Unmarshal([]byte(state), &sess); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &sess, version, nil
}

// CompareAndSwap replaces the stored state only when expected is still the
// current version. The version guard is the WHERE clause itself, so two
// racing writers can never both succeed.
func (s *SQLite) CompareAndSwap(ctx context.Context, id string, expected Version, sess *engine.Session) (Version, error) {
	state, err := json.Marshal(sess)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal session: %w", err)
	}

	next := expected + 1
	res, err := s.db.ExecContext(ctx,
		`UPDATE memory_sessions SET version = ?, ended = ?, state = ? WHERE id = ? AND version = ?`,
		next, boolToInt(sess.IsEnded()), string(state), id, expected)
	if err != nil {
		return 0, fmt.Errorf("failed to update session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 1 {
		return next, nil
	}

	// The guarded update missed: either the session is gone or another
	// writer advanced the version first.
	var current Version
	err = s.db.QueryRowContext(ctx, `SELECT version FROM memory_sessions WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check session version: %w", err)
	}
	return 0, fmt.Errorf("%w: expected version %d, found %d", ErrVersionConflict, expected, current)
}

// Delete removes a session and its membership index rows.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_session_players WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete player index: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM memory_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ListByPlayer returns the player's sessions that have not ended.
func (s *SQLite) ListByPlayer(ctx context.Context, playerID string) ([]*engine.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.state
		FROM memory_sessions s
		JOIN memory_session_players p ON p.session_id = s.id
		WHERE p.player_id = ? AND s.ended = 0
		ORDER BY s.id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var result []*engine.Session
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		var sess engine.Session
		if err := json.Unmarshal([]byte(state), &sess); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		result = append(result, &sess)
	}
	return result, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

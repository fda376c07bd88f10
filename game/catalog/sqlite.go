package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/memolab/memory-server/game/engine"
)

const cardsSchema = `
CREATE TABLE IF NOT EXISTS memory_cards (
	asset_id  TEXT PRIMARY KEY,
	filename  TEXT NOT NULL DEFAULT '',
	format    TEXT NOT NULL DEFAULT '',
	url       TEXT NOT NULL,
	bytes     INTEGER NOT NULL DEFAULT 0,
	width     INTEGER NOT NULL DEFAULT 0,
	height    INTEGER NOT NULL DEFAULT 0
);`

// SQLite is a card catalog backed by a SQLite table, seeded from manifest
// files via Upsert.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates the catalog table if needed and returns a catalog over
// the given database handle.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(cardsSchema); err != nil {
		return nil, fmt.Errorf("failed to create cards table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Snapshot returns all catalog cards as faces for pool generation.
func (c *SQLite) Snapshot(ctx context.Context) ([]engine.CardFace, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT asset_id, url FROM memory_cards ORDER BY asset_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var faces []engine.CardFace
	for rows.Next() {
		var face engine.CardFace
		if err := rows.Scan(&face.CardID, &face.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		faces = append(faces, face)
	}
	return faces, rows.Err()
}

// Upsert inserts or updates the given assets by asset identifier, all in
// one transaction.
func (c *SQLite) Upsert(ctx context.Context, assets []CardAsset) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO memory_cards (asset_id, filename, format, url, bytes, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_id) DO UPDATE SET
			filename = excluded.filename,
			format   = excluded.format,
			url      = excluded.url,
			bytes    = excluded.bytes,
			width    = excluded.width,
			height   = excluded.height`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range assets {
		if _, err := stmt.ExecContext(ctx, a.AssetID, a.Filename, a.Format, a.URL, a.Bytes, a.Width, a.Height); err != nil {
			return fmt.Errorf("failed to upsert asset %q: %w", a.AssetID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of cards in the catalog.
func (c *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

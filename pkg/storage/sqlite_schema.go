package storage

import (
	"context"
	"database/sql"

	"emberhold/realmd/pkg/migrate"
)

// baselineSchema is schema version 1. It is created when a database is
// opened; every later change is a converter.
const baselineSchema = `
CREATE TABLE IF NOT EXISTS players (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS realm_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Version 2: per-player position and activity.
const playerStateSchema = `
CREATE TABLE IF NOT EXISTS player_state (
	player_id TEXT PRIMARY KEY REFERENCES players(id) ON DELETE CASCADE,
	level INTEGER NOT NULL DEFAULT 1,
	region INTEGER NOT NULL DEFAULT 0,
	x REAL NOT NULL DEFAULT 0,
	y REAL NOT NULL DEFAULT 0,
	z REAL NOT NULL DEFAULT 0,
	last_seen INTEGER NOT NULL
);

INSERT OR IGNORE INTO player_state (player_id, last_seen)
SELECT id, created_at FROM players;
`

// Version 3: archive for long-inactive players.
const archiveSchema = `
CREATE TABLE IF NOT EXISTS archived_players (
	player_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	level INTEGER NOT NULL,
	region INTEGER NOT NULL,
	last_seen INTEGER NOT NULL,
	archived_at INTEGER NOT NULL,
	batch_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archived_batch ON archived_players(batch_id);
`

// Version 4: archive scans filter on last_seen.
const lastSeenIndex = `
CREATE INDEX IF NOT EXISTS idx_player_state_last_seen ON player_state(last_seen);
`

// converters returns the schema converters for s, in version order.
func (s *SQLiteStore) converters() []migrate.Converter {
	return []migrate.Converter{
		migrate.ConverterFunc(2, "player_state", s.execConverter(playerStateSchema)),
		migrate.ConverterFunc(3, "archived_players", s.execConverter(archiveSchema)),
		migrate.ConverterFunc(4, "player_state_last_seen_index", s.execConverter(lastSeenIndex)),
	}
}

// execConverter runs ddl in one transaction.
func (s *SQLiteStore) execConverter(ddl string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return s.withTx(ctx, "convert", func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, ddl)
			return err
		})
	}
}

// Converters returns the schema converters owned by store. Backends without
// a schema return none.
func Converters(store Store) []migrate.Converter {
	if s, ok := store.(*SQLiteStore); ok {
		return s.converters()
	}
	return nil
}

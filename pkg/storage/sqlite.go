package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go SQLite driver, registered as "sqlite"
)

// SQLiteConfig contains configuration for the SQLite game store.
type SQLiteConfig struct {
	// Driver is the database/sql driver name.
	// Options: "sqlite" (modernc.org/sqlite), "sqlite3" (mattn/go-sqlite3)
	// Default: "sqlite"
	Driver string

	// Path is the database file path.
	Path string

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:      "sqlite",
		Path:        "data/realm.db",
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStore implements Store on SQLite. A single connection is used since
// SQLite allows one writer at a time.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	cache  *cache
	closed atomic.Bool
	logger *slog.Logger
}

// NewSQLiteStore opens the database and creates the baseline schema.
func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if cfg.Path == "" {
		return nil, NewStorageError(cfg.Driver, "open", fmt.Errorf("db path cannot be empty"))
	}
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "storage.sqlite")

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError(cfg.Driver, "open", err)
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		cache:  newCache(),
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"driver", cfg.Driver,
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
	)

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError(s.config.Driver, "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError(s.config.Driver, "set_busy_timeout", err)
	}
	if _, err := s.db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return NewStorageError(s.config.Driver, "enable_foreign_keys", err)
	}

	if _, err := s.db.Exec(baselineSchema); err != nil {
		return NewStorageError(s.config.Driver, "create_schema", err)
	}
	return nil
}

// LoadAll implements Store.
func (s *SQLiteStore) LoadAll(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, st.level, st.region, st.x, st.y, st.z, st.last_seen
		FROM players p
		JOIN player_state st ON st.player_id = p.id
	`)
	if err != nil {
		return NewStorageError(s.config.Driver, "load_all", err)
	}
	defer rows.Close()

	var states []PlayerState
	for rows.Next() {
		var (
			p        PlayerState
			lastSeen int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Level, &p.Region, &p.X, &p.Y, &p.Z, &lastSeen); err != nil {
			return NewStorageError(s.config.Driver, "load_all", err)
		}
		p.LastSeen = time.UnixMilli(lastSeen).UTC()
		states = append(states, p)
	}
	if err := rows.Err(); err != nil {
		return NewStorageError(s.config.Driver, "load_all", err)
	}

	s.cache.load(states)
	s.logger.Info("loaded players", "count", len(states))
	return nil
}

// Put implements Store.
func (s *SQLiteStore) Put(state PlayerState) {
	s.cache.put(state)
}

// Get implements Store.
func (s *SQLiteStore) Get(id string) (PlayerState, bool) {
	return s.cache.get(id)
}

// Players implements Store.
func (s *SQLiteStore) Players() []PlayerState {
	return s.cache.snapshot()
}

// WriteAll implements Store.
func (s *SQLiteStore) WriteAll(ctx context.Context) (int, error) {
	dirty := s.cache.takeDirty()
	n, err := s.write(ctx, "write_all", dirty)
	if err != nil {
		return 0, err
	}
	s.cache.markClean(dirty)
	return n, nil
}

// SavePlayers implements Store.
func (s *SQLiteStore) SavePlayers(ctx context.Context, states []PlayerState) (int, error) {
	n, err := s.write(ctx, "save_players", states)
	if err != nil {
		return 0, err
	}
	for _, st := range states {
		s.cache.put(st)
	}
	s.cache.markClean(states)
	return n, nil
}

func (s *SQLiteStore) write(ctx context.Context, op string, states []PlayerState) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	now := time.Now().UTC()
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		for _, p := range states {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO players (id, name, created_at) VALUES (?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET name = excluded.name
			`, p.ID, p.Name, now.UnixMilli()); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO player_state (player_id, level, region, x, y, z, last_seen)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (player_id) DO UPDATE SET
					level = excluded.level,
					region = excluded.region,
					x = excluded.x,
					y = excluded.y,
					z = excluded.z,
					last_seen = excluded.last_seen
			`, p.ID, p.Level, p.Region, p.X, p.Y, p.Z, p.LastSeen.UnixMilli()); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO realm_meta (key, value) VALUES ('last_write', ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value
		`, strconv.FormatInt(now.UnixMilli(), 10))
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(states), nil
}

// ArchiveInactive implements Store. Archived rows share one batch id.
func (s *SQLiteStore) ArchiveInactive(ctx context.Context, olderThan time.Time) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	batchID := uuid.NewString()
	cutoff := olderThan.UnixMilli()
	var archived []string

	err := s.withTx(ctx, "archive", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT p.id, p.name, st.level, st.region, st.last_seen
			FROM players p
			JOIN player_state st ON st.player_id = p.id
			WHERE st.last_seen < ?
		`, cutoff)
		if err != nil {
			return err
		}

		type row struct {
			id, name      string
			level, region int
			lastSeen      int64
		}
		var candidates []row
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.id, &r.name, &r.level, &r.region, &r.lastSeen); err != nil {
				rows.Close()
				return err
			}
			candidates = append(candidates, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		now := time.Now().UTC().UnixMilli()
		for _, r := range candidates {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO archived_players
					(player_id, name, level, region, last_seen, archived_at, batch_id)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, r.id, r.name, r.level, r.region, r.lastSeen, now, batchID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM player_state WHERE player_id = ?`, r.id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, r.id); err != nil {
				return err
			}
			archived = append(archived, r.id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.cache.remove(archived)
	if len(archived) > 0 {
		s.logger.Info("archived inactive players", "count", len(archived), "batch_id", batchID, "older_than", olderThan)
	}
	return int64(len(archived)), nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(s.config.Driver, "ping", err)
	}
	return nil
}

// Close implements Store. Closing twice is a no-op.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return NewStorageError(s.config.Driver, "close", err)
	}
	return nil
}

// DB exposes the underlying handle for diagnostics and tests.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError(s.config.Driver, op, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return NewStorageError(s.config.Driver, op, err)
	}
	if err := tx.Commit(); err != nil {
		return NewStorageError(s.config.Driver, op, err)
	}
	return nil
}

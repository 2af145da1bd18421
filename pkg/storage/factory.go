package storage

import (
	"fmt"

	"emberhold/realmd/pkg/config"
)

// New creates the store selected by cfg.Driver.
func New(cfg *config.DatabaseConfig) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is nil")
	}

	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "sqlite3":
		s, err := NewSQLiteStore(&SQLiteConfig{
			Driver:      cfg.Driver,
			Path:        cfg.Path,
			WALMode:     cfg.WALMode,
			BusyTimeout: cfg.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"emberhold/realmd/pkg/config"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	store.Put(player("a", now))
	store.Put(player("old", now.Add(-90*24*time.Hour)))

	if n, err := store.WriteAll(ctx); err != nil || n != 2 {
		t.Fatalf("WriteAll = %d, %v", n, err)
	}

	n, err := store.ArchiveInactive(ctx, now.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("ArchiveInactive = %d, %v", n, err)
	}
	if got := store.Archived(); len(got) != 1 || got[0] != "old" {
		t.Errorf("Archived() = %v", got)
	}

	if err := store.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if players := store.Players(); len(players) != 1 || players[0].ID != "a" {
		t.Errorf("Players() = %+v", players)
	}

	store.Close()
	if _, err := store.WriteAll(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteAll after close = %v, want ErrClosed", err)
	}
}

func TestConverters_MemoryStoreHasNone(t *testing.T) {
	if got := Converters(NewMemoryStore()); len(got) != 0 {
		t.Errorf("expected no converters, got %d", len(got))
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.DatabaseConfig
		wantErr bool
	}{
		{name: "nil", cfg: nil, wantErr: true},
		{name: "memory", cfg: &config.DatabaseConfig{Driver: "memory"}},
		{name: "unknown driver", cfg: &config.DatabaseConfig{Driver: "postgres"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if store != nil {
				store.Close()
			}
		})
	}
}

func TestNew_SQLite(t *testing.T) {
	store, err := New(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        t.TempDir() + "/nested/realm.db",
		WALMode:     true,
		BusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
	if len(Converters(store)) != 3 {
		t.Errorf("expected 3 converters for SQLite")
	}
}

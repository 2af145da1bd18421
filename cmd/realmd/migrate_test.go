package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"emberhold/realmd/pkg/config"
	"emberhold/realmd/pkg/migrate"
	"emberhold/realmd/pkg/storage"
)

func migrateTestSetup(t *testing.T) (*config.Config, storage.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RootDirectory = t.TempDir()
	cfg.Database.Driver = "sqlite"

	store, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return cfg, store
}

func TestPlanMigration_DryRun(t *testing.T) {
	cfg, store := migrateTestSetup(t)

	plan, err := planMigration(context.Background(), cfg, store, true)
	if err != nil {
		t.Fatalf("planMigration() error = %v", err)
	}
	if plan.Current != migrate.BaselineVersion {
		t.Errorf("Current = %d, want %d", plan.Current, migrate.BaselineVersion)
	}
	if plan.Latest != 4 || len(plan.Pending) != 3 {
		t.Errorf("Latest = %d, Pending = %v", plan.Latest, plan.Pending)
	}
	if plan.Applied {
		t.Error("dry run applied converters")
	}
	if want := filepath.Join(cfg.Server.RootDirectory, cfg.Database.VersionFile); plan.VersionFile != want {
		t.Errorf("VersionFile = %q, want %q", plan.VersionFile, want)
	}
	if !strings.Contains(plan.Text(), "Pending: 2, 3, 4") {
		t.Errorf("Text() = %q", plan.Text())
	}
}

func TestPlanMigration_Apply(t *testing.T) {
	cfg, store := migrateTestSetup(t)

	plan, err := planMigration(context.Background(), cfg, store, false)
	if err != nil {
		t.Fatalf("planMigration() error = %v", err)
	}
	if !plan.Applied || plan.Current != 4 {
		t.Errorf("plan = %+v", plan)
	}

	again, err := planMigration(context.Background(), cfg, store, false)
	if err != nil {
		t.Fatal(err)
	}
	if again.Applied || len(again.Pending) != 0 {
		t.Errorf("second run = %+v, want up to date", again)
	}
	if !strings.Contains(again.Text(), "up to date") {
		t.Errorf("Text() = %q", again.Text())
	}
}

// Package migrate upgrades persisted game data to the schema the running
// binary expects.
//
// Converters are registered explicitly at startup. Before anything runs,
// the registry is checked for duplicate, non-positive and non-contiguous
// versions; any of those is a fatal configuration error. Pending converters
// are then applied in ascending order and the version marker is rewritten
// after each one:
//
//	registry := migrate.NewRegistry(storage.Converters(store)...)
//	m := migrate.New(migrate.NewFileStore(cfg.Database.VersionFile), registry)
//	if err := m.CheckAndMigrate(ctx); err != nil {
//		return err
//	}
package migrate

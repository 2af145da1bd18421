package main

import (
	"io"
	"log/slog"
	"path/filepath"

	"emberhold/realmd/pkg/cli"
	"emberhold/realmd/pkg/config"
	"emberhold/realmd/pkg/storage"
	"emberhold/realmd/pkg/telemetry/logging"
)

// loadConfig loads the configuration named by the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile, envFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogger builds the process logger and installs it as the default.
func setupLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, w))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

// resolvePath joins relative paths onto the server root directory.
func resolvePath(cfg *config.Config, p string) string {
	if p == "" || filepath.IsAbs(p) || cfg.Server.RootDirectory == "" {
		return p
	}
	return filepath.Join(cfg.Server.RootDirectory, p)
}

// openStore opens the configured game store.
func openStore(cfg *config.Config) (storage.Store, error) {
	db := cfg.Database
	db.Path = resolvePath(cfg, db.Path)
	return storage.New(&db)
}

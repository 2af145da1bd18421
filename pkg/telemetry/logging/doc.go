// Package logging builds the process logger.
//
// # Overview
//
// The package wraps log/slog to provide:
//   - JSON, text, and console output formats
//   - Configurable log levels (debug, info, warn, error)
//   - Context-aware records carrying boot id, lifecycle step and session id
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithBootID(ctx, bootID)
//	logger.InfoContext(ctx, "server starting")  // includes boot_id
//
// Components take a *slog.Logger and tag it with Component:
//
//	log := logging.Component(logger, "transport.udp")
package logging

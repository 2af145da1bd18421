package config

import (
	"fmt"
	"net"
	"strings"
)

// MaxSessionID is the largest session identifier the wire header can carry.
const MaxSessionID = 0xFFFF

// minDatagramSize is the smallest buffer that can hold a header and checksum.
const minDatagramSize = 12

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "udp.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any rule fails. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateUDP(&cfg.UDP)...)
	errs = append(errs, validateDatabase(&cfg.Database)...)
	errs = append(errs, validatePersistence(&cfg.Persistence)...)
	errs = append(errs, validateScripts(&cfg.Scripts)...)
	errs = append(errs, validateAdmin(&cfg.Admin)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Admin.Enabled && cfg.Admin.ListenAddress == cfg.Server.ListenAddress {
		errs = append(errs, FieldError{
			Field:   "admin.listen_address",
			Message: "admin address must differ from server.listen_address",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validateHostPort("server.listen_address", cfg.ListenAddress, true)...)

	if cfg.MaxClients <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_clients",
			Message: "max clients must be positive",
		})
	} else if cfg.MaxClients > MaxSessionID {
		errs = append(errs, FieldError{
			Field:   "server.max_clients",
			Message: fmt.Sprintf("max clients must not exceed %d (16-bit session ids)", MaxSessionID),
		})
	}

	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

func validateUDP(cfg *UDPConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validateHostPort("udp.listen_address", cfg.ListenAddress, true)...)
	if cfg.OutboundAddress != "" {
		errs = append(errs, validateHostPort("udp.outbound_address", cfg.OutboundAddress, false)...)
	}

	if cfg.BufferSize < minDatagramSize || cfg.BufferSize > 65535 {
		errs = append(errs, FieldError{
			Field:   "udp.buffer_size",
			Message: fmt.Sprintf("buffer size must be between %d and 65535", minDatagramSize),
		})
	}
	if cfg.SocketReadBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "udp.socket_read_buffer",
			Message: "socket read buffer must be non-negative",
		})
	}
	if cfg.SendQueueSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "udp.send_queue_size",
			Message: "send queue size must be positive",
		})
	}
	if cfg.SendWarnThreshold < 0 {
		errs = append(errs, FieldError{
			Field:   "udp.send_warn_threshold",
			Message: "send warn threshold must be positive",
		})
	}

	validChecksums := map[string]bool{"fletcher7e": true}
	if !validChecksums[cfg.Checksum] {
		errs = append(errs, FieldError{
			Field:   "udp.checksum",
			Message: fmt.Sprintf("unknown checksum %q: must be 'fletcher7e'", cfg.Checksum),
		})
	}

	return errs
}

func validateDatabase(cfg *DatabaseConfig) []FieldError {
	var errs []FieldError

	validDrivers := map[string]bool{"sqlite": true, "sqlite3": true, "memory": true}
	if !validDrivers[cfg.Driver] {
		errs = append(errs, FieldError{
			Field:   "database.driver",
			Message: fmt.Sprintf("invalid driver %q: must be 'sqlite', 'sqlite3', or 'memory'", cfg.Driver),
		})
	}
	if cfg.Driver != "memory" && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "database.path",
			Message: "database path is required for SQLite drivers",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "database.busy_timeout",
			Message: "busy timeout must be positive",
		})
	}
	if cfg.VersionFile == "" {
		errs = append(errs, FieldError{
			Field:   "database.version_file",
			Message: "version file is required",
		})
	}

	return errs
}

func validatePersistence(cfg *PersistenceConfig) []FieldError {
	var errs []FieldError

	if cfg.SaveIntervalMinutes < 1 {
		errs = append(errs, FieldError{
			Field:   "persistence.save_interval_minutes",
			Message: "save interval must be at least one minute",
		})
	}
	if cfg.ArchiveInactive && cfg.ArchiveAfter <= 0 {
		errs = append(errs, FieldError{
			Field:   "persistence.archive_after",
			Message: "archive threshold must be positive when archiving is enabled",
		})
	}

	return errs
}

func validateScripts(cfg *ScriptsConfig) []FieldError {
	var errs []FieldError

	if cfg.Watch && cfg.Directory == "" {
		errs = append(errs, FieldError{
			Field:   "scripts.directory",
			Message: "scripts directory is required when watching",
		})
	}
	for i, a := range cfg.Assemblies {
		if strings.TrimSpace(a) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("scripts.assemblies[%d]", i),
				Message: "assembly name must not be empty",
			})
		}
	}

	return errs
}

func validateAdmin(cfg *AdminConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	return validateHostPort("admin.listen_address", cfg.ListenAddress, true)
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.liveness_path",
			Message: "liveness path must start with '/'",
		})
	}
	if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.readiness_path",
			Message: "readiness path must start with '/'",
		})
	}

	return errs
}

// validateHostPort checks a "host:port" string. When requirePort is false a
// zero port is accepted.
func validateHostPort(field, addr string, requirePort bool) []FieldError {
	if addr == "" {
		return []FieldError{{Field: field, Message: "address is required"}}
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid address %q: %v", addr, err)}}
	}
	if requirePort && (port == "" || port == "0") {
		return []FieldError{{Field: field, Message: "a fixed port is required"}}
	}
	return nil
}

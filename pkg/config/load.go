package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "REALMD_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Values absent from the file keep their defaults. The result is validated.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of Default and fills remaining zero values.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// REALMD_SECTION_FIELD (e.g., REALMD_UDP_LISTEN_ADDRESS) and always take
// precedence over the file.
//
// If path is empty or the file does not exist, the defaults are used as the
// base. When envFile is non-empty it is loaded with godotenv first; variables
// already present in the process environment are not replaced.
//
// The loading sequence is:
// 1. Load .env file (optional)
// 2. Load YAML from file, on top of defaults
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %q: %w", envFile, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			cfg, err = Parse(data)
			if err != nil {
				return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// run from defaults plus environment
		default:
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_NAME", &cfg.Server.Name)
	envString("SERVER_SERVER_TYPE", &cfg.Server.ServerType)
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envInt("SERVER_MAX_CLIENTS", &cfg.Server.MaxClients)
	envString("SERVER_ROOT_DIRECTORY", &cfg.Server.RootDirectory)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// UDP overrides
	envString("UDP_LISTEN_ADDRESS", &cfg.UDP.ListenAddress)
	envString("UDP_OUTBOUND_ADDRESS", &cfg.UDP.OutboundAddress)
	envInt("UDP_BUFFER_SIZE", &cfg.UDP.BufferSize)
	envInt("UDP_SEND_QUEUE_SIZE", &cfg.UDP.SendQueueSize)
	envDuration("UDP_SEND_WARN_THRESHOLD", &cfg.UDP.SendWarnThreshold)
	envString("UDP_CHECKSUM", &cfg.UDP.Checksum)

	// Database overrides
	envString("DATABASE_DRIVER", &cfg.Database.Driver)
	envString("DATABASE_PATH", &cfg.Database.Path)
	envBool("DATABASE_WAL_MODE", &cfg.Database.WALMode)
	envDuration("DATABASE_BUSY_TIMEOUT", &cfg.Database.BusyTimeout)
	envString("DATABASE_VERSION_FILE", &cfg.Database.VersionFile)

	// Persistence overrides
	envInt("PERSISTENCE_SAVE_INTERVAL_MINUTES", &cfg.Persistence.SaveIntervalMinutes)
	envBool("PERSISTENCE_ARCHIVE_INACTIVE", &cfg.Persistence.ArchiveInactive)
	envDuration("PERSISTENCE_ARCHIVE_AFTER", &cfg.Persistence.ArchiveAfter)
	envBool("PERSISTENCE_LOWER_PRIORITY", &cfg.Persistence.LowerPriority)

	// Scripts overrides
	envString("SCRIPTS_DIRECTORY", &cfg.Scripts.Directory)
	envBool("SCRIPTS_WATCH", &cfg.Scripts.Watch)
	if val := os.Getenv(EnvPrefix + "SCRIPTS_ASSEMBLIES"); val != "" {
		cfg.Scripts.Assemblies = splitList(val)
	}

	// Admin overrides
	envBool("ADMIN_ENABLED", &cfg.Admin.Enabled)
	envString("ADMIN_LISTEN_ADDRESS", &cfg.Admin.ListenAddress)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// splitList splits a comma-separated environment value, dropping blanks.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

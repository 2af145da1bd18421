package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultServerName      = "realmd"
	DefaultServerType      = "normal"
	DefaultListenAddress   = "0.0.0.0:10300"
	DefaultMaxClients      = 500
	DefaultRootDirectory   = "."
	DefaultShutdownTimeout = 30 * time.Second

	// UDP defaults
	DefaultUDPListenAddress     = "0.0.0.0:10400"
	DefaultUDPBufferSize        = 2048
	DefaultUDPSendQueueSize     = 1024
	DefaultUDPSendWarnThreshold = 100 * time.Millisecond
	DefaultUDPChecksum          = "fletcher7e"

	// Database defaults
	DefaultDatabaseDriver      = "sqlite"
	DefaultDatabasePath        = "data/realm.db"
	DefaultDatabaseWALMode     = true
	DefaultDatabaseBusyTimeout = 5 * time.Second
	DefaultVersionFile         = "config/database_version.yaml"

	// Persistence defaults
	DefaultSaveIntervalMinutes = 10
	DefaultArchiveInactive     = false
	DefaultArchiveAfter        = 30 * 24 * time.Hour
	DefaultLowerPriority       = true

	// Scripts defaults
	DefaultScriptsDirectory = "scripts"
	DefaultScriptsWatch     = false
	DefaultScriptsDebounce  = 250 * time.Millisecond

	// Admin defaults
	DefaultAdminEnabled       = true
	DefaultAdminListenAddress = "127.0.0.1:10380"
	DefaultAdminReadTimeout   = 10 * time.Second
	DefaultAdminWriteTimeout  = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "realmd"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingTimeout     = 10 * time.Second
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultScriptAssemblies is the assembly list used when none is configured.
var DefaultScriptAssemblies = []string{"realm.core", "realm.rules", "realm.events"}

// DefaultScriptExtensions is the set of file extensions the script watcher
// reacts to.
var DefaultScriptExtensions = []string{".go", ".lua", ".cs"}

// DefaultSaveDurationBuckets are histogram buckets for world save durations.
var DefaultSaveDurationBuckets = []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}

// Default returns a configuration populated with every default value.
// Booleans whose default is true are only representable here, so file
// loading starts from this value and lets YAML override it.
func Default() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			WALMode: DefaultDatabaseWALMode,
		},
		Persistence: PersistenceConfig{
			ArchiveInactive: DefaultArchiveInactive,
			LowerPriority:   DefaultLowerPriority,
		},
		Scripts: ScriptsConfig{
			Watch: DefaultScriptsWatch,
		},
		Admin: AdminConfig{
			Enabled: DefaultAdminEnabled,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				Enabled: DefaultTracingEnabled,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Name == "" {
		cfg.Server.Name = DefaultServerName
	}
	if cfg.Server.ServerType == "" {
		cfg.Server.ServerType = DefaultServerType
	}
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.MaxClients == 0 {
		cfg.Server.MaxClients = DefaultMaxClients
	}
	if cfg.Server.RootDirectory == "" {
		cfg.Server.RootDirectory = DefaultRootDirectory
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// UDP defaults
	if cfg.UDP.ListenAddress == "" {
		cfg.UDP.ListenAddress = DefaultUDPListenAddress
	}
	if cfg.UDP.BufferSize == 0 {
		cfg.UDP.BufferSize = DefaultUDPBufferSize
	}
	if cfg.UDP.SendQueueSize == 0 {
		cfg.UDP.SendQueueSize = DefaultUDPSendQueueSize
	}
	if cfg.UDP.SendWarnThreshold == 0 {
		cfg.UDP.SendWarnThreshold = DefaultUDPSendWarnThreshold
	}
	if cfg.UDP.Checksum == "" {
		cfg.UDP.Checksum = DefaultUDPChecksum
	}

	// Database defaults
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDatabaseDriver
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = DefaultDatabaseBusyTimeout
	}
	if cfg.Database.VersionFile == "" {
		cfg.Database.VersionFile = DefaultVersionFile
	}

	// Persistence defaults
	if cfg.Persistence.SaveIntervalMinutes == 0 {
		cfg.Persistence.SaveIntervalMinutes = DefaultSaveIntervalMinutes
	}
	if cfg.Persistence.ArchiveAfter == 0 {
		cfg.Persistence.ArchiveAfter = DefaultArchiveAfter
	}

	// Scripts defaults
	if cfg.Scripts.Directory == "" {
		cfg.Scripts.Directory = DefaultScriptsDirectory
	}
	if len(cfg.Scripts.Assemblies) == 0 {
		cfg.Scripts.Assemblies = append([]string(nil), DefaultScriptAssemblies...)
	}
	if cfg.Scripts.DebounceInterval == 0 {
		cfg.Scripts.DebounceInterval = DefaultScriptsDebounce
	}
	if len(cfg.Scripts.Extensions) == 0 {
		cfg.Scripts.Extensions = append([]string(nil), DefaultScriptExtensions...)
	}

	// Admin defaults
	if cfg.Admin.ListenAddress == "" {
		cfg.Admin.ListenAddress = DefaultAdminListenAddress
	}
	if cfg.Admin.ReadTimeout == 0 {
		cfg.Admin.ReadTimeout = DefaultAdminReadTimeout
	}
	if cfg.Admin.WriteTimeout == 0 {
		cfg.Admin.WriteTimeout = DefaultAdminWriteTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.SaveDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.SaveDurationBuckets = append([]float64(nil), DefaultSaveDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = cfg.Server.Name
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

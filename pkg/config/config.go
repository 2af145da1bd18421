package config

import "time"

// Config is the root configuration structure for realmd.
// It contains the network, storage, persistence, scripting and telemetry
// sections the game server needs to boot.
type Config struct {
	// Server contains the TCP front door and process-wide limits.
	Server ServerConfig `yaml:"server"`

	// UDP contains the datagram pipeline configuration.
	UDP UDPConfig `yaml:"udp"`

	// Database contains the game store and schema version file settings.
	Database DatabaseConfig `yaml:"database"`

	// Persistence contains the periodic world save settings.
	Persistence PersistenceConfig `yaml:"persistence"`

	// Scripts contains the script assembly list handed to the compiler.
	Scripts ScriptsConfig `yaml:"scripts"`

	// Admin contains the operator HTTP surface (metrics and probes).
	Admin AdminConfig `yaml:"admin"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the game server process.
type ServerConfig struct {
	// Name is the display name of the realm, used in logs and traces.
	// Default: "realmd"
	Name string `yaml:"name"`

	// ServerType is an opaque rules selector passed to the rules factory.
	// Default: "normal"
	ServerType string `yaml:"server_type"`

	// ListenAddress is the TCP address clients connect to.
	// Format: "host:port". Default: "0.0.0.0:10300"
	ListenAddress string `yaml:"listen_address"`

	// MaxClients bounds the number of concurrent sessions and sizes the
	// packet buffer pool.
	// Default: 500
	MaxClients int `yaml:"max_clients"`

	// RootDirectory is the base directory relative paths resolve against.
	// Default: "."
	RootDirectory string `yaml:"root_directory"`

	// ShutdownTimeout bounds how long the run command waits for the admin
	// surface to drain before stopping the game server.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UDPConfig contains configuration for the UDP ingestion pipeline.
type UDPConfig struct {
	// ListenAddress is the inbound datagram endpoint.
	// Default: "0.0.0.0:10400"
	ListenAddress string `yaml:"listen_address"`

	// OutboundAddress optionally binds the outbound socket to a fixed local
	// endpoint. Empty means an ephemeral local port.
	OutboundAddress string `yaml:"outbound_address"`

	// BufferSize is the size of each pooled receive buffer in bytes.
	// Default: 2048
	BufferSize int `yaml:"buffer_size"`

	// SocketReadBuffer sets SO_RCVBUF on the inbound socket. Zero keeps the
	// OS default.
	SocketReadBuffer int `yaml:"socket_read_buffer"`

	// SendQueueSize is the capacity of the asynchronous send queue.
	// Default: 1024
	SendQueueSize int `yaml:"send_queue_size"`

	// SendWarnThreshold is the send latency that triggers a warning.
	// Default: 100ms
	SendWarnThreshold time.Duration `yaml:"send_warn_threshold"`

	// Checksum names the datagram checksum algorithm.
	// Options: "fletcher7e". Default: "fletcher7e"
	Checksum string `yaml:"checksum"`
}

// DatabaseConfig contains configuration for the game store.
type DatabaseConfig struct {
	// Driver selects the storage backend.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo), "memory"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file path for the SQLite drivers.
	// Default: "data/realm.db"
	Path string `yaml:"path"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// VersionFile is where the applied schema version is persisted.
	// Default: "config/database_version.yaml"
	VersionFile string `yaml:"version_file"`
}

// PersistenceConfig contains configuration for periodic world saves.
type PersistenceConfig struct {
	// SaveIntervalMinutes is the number of minutes between world saves.
	// Default: 10
	SaveIntervalMinutes int `yaml:"save_interval_minutes"`

	// ArchiveInactive moves long-inactive players to the archive table on
	// shutdown.
	// Default: false
	ArchiveInactive bool `yaml:"archive_inactive"`

	// ArchiveAfter is the inactivity threshold used when archiving.
	// Default: 720h (30 days)
	ArchiveAfter time.Duration `yaml:"archive_after"`

	// LowerPriority drops the saving thread's scheduling priority while a
	// save runs.
	// Default: true
	LowerPriority bool `yaml:"lower_priority"`
}

// SaveInterval returns the configured save interval as a duration.
func (p PersistenceConfig) SaveInterval() time.Duration {
	return time.Duration(p.SaveIntervalMinutes) * time.Minute
}

// ScriptsConfig contains the opaque script assembly configuration.
type ScriptsConfig struct {
	// Directory is the root of the script sources.
	// Default: "scripts"
	Directory string `yaml:"directory"`

	// Assemblies is the list of assemblies the script compiler links against.
	Assemblies []string `yaml:"assemblies"`

	// Watch enables a directory watcher that announces script changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval collapses bursts of file events.
	// Default: 250ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Extensions limits which files trigger a change notification.
	// Default: [".go", ".lua", ".cs"]
	Extensions []string `yaml:"extensions"`
}

// AdminConfig contains configuration for the admin HTTP surface.
type AdminConfig struct {
	// Enabled controls whether the admin server is started.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the admin HTTP address.
	// Default: "127.0.0.1:10380"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout and WriteTimeout bound admin requests.
	// Default: 10s each
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "realmd"
	Namespace string `yaml:"namespace"`

	// SaveDurationBuckets defines histogram buckets for world save duration (seconds).
	// Default: [0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60]
	SaveDurationBuckets []float64 `yaml:"save_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "realmd"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

package config

import "time"

// Config is the root configuration structure for the ALPR dashboard backend.
// It contains the HTTP server, storage, retention scheduling, event
// publication and telemetry sections.
type Config struct {
	// Server contains HTTP API server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Storage selects and configures the database holding detection records
	// and system configuration entries.
	Storage StorageConfig `yaml:"storage"`

	// Retention configures the background cleanup scheduler and the policy
	// used when none has been saved yet.
	Retention RetentionConfig `yaml:"retention"`

	// Events configures publication of cleanup results to NATS.
	Events EventsConfig `yaml:"events"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Manual cleanups run inside this window.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the size of request bodies accepted by the API.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS controls cross-origin access for the dashboard frontend.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	// Enabled turns on CORS headers and preflight handling.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists origins allowed to call the API. "*" allows any.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists methods allowed in preflight responses.
	// Default: ["GET", "POST", "PUT", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists request headers allowed in preflight responses.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is how long, in seconds, browsers may cache a preflight.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// StorageConfig contains configuration for the database.
type StorageConfig struct {
	// Driver selects the backend:
	//   - "sqlite": pure Go SQLite (modernc.org/sqlite)
	//   - "sqlite3": cgo SQLite (github.com/mattn/go-sqlite3)
	//   - "memory": in-memory, nothing survives a restart
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the SQLite database file path.
	// Default: "data/alpr.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// JournalMode is the SQLite journal mode: "wal" or "delete".
	// Default: "wal"
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is how long to wait for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures the retention scheduler.
//
// The retention policy itself (days to keep, enabled) is runtime state kept
// in the system configuration store and edited through the API; the values
// here only seed it.
type RetentionConfig struct {
	// DisableScheduler turns off the background cleanup loop. Manual
	// cleanups through the API and CLI keep working.
	// Default: false
	DisableScheduler bool `yaml:"disable_scheduler"`

	// InitialDelay is how long after startup the first cleanup runs.
	// Default: 5s
	InitialDelay time.Duration `yaml:"initial_delay"`

	// Interval is the period between scheduled cleanups.
	// Default: 24h
	Interval time.Duration `yaml:"interval"`

	// Schedule is an optional standard cron expression. When set it replaces
	// Interval, e.g. "0 3 * * *" for daily at 3 AM.
	Schedule string `yaml:"schedule"`

	// DefaultDays is the retention period used until a policy is saved.
	// Default: 90
	DefaultDays int `yaml:"default_days"`

	// RunTimeout bounds a single cleanup run.
	// Default: 10m
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// EventsConfig configures NATS publication of cleanup results.
type EventsConfig struct {
	// Enabled turns on event publication.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// NATSURL is the NATS server URL.
	// Default: "nats://127.0.0.1:4222"
	NATSURL string `yaml:"nats_url"`

	// SubjectPrefix is prepended to every subject, e.g. "alpr" publishes
	// cleanup results on "alpr.retention.cleanup".
	// Default: "alpr"
	SubjectPrefix string `yaml:"subject_prefix"`

	// ConnectTimeout bounds the initial connection attempt.
	// Default: 5s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource adds file:line to every log record.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled enables metrics collection and the metrics endpoint.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the Prometheus metric namespace.
	// Default: "alpr"
	Namespace string `yaml:"namespace"`
}

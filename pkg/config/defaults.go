package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 1048576 // 1MB
	DefaultCORSEnabled     = true
	DefaultCORSMaxAge      = 3600

	// Storage defaults
	DefaultStorageDriver       = "sqlite"
	DefaultStoragePath         = "data/alpr.db"
	DefaultStorageMaxOpenConns = 10
	DefaultStorageMaxIdleConns = 5
	DefaultStorageJournalMode  = "wal"
	DefaultStorageBusyTimeout  = 5 * time.Second

	// Retention defaults
	DefaultRetentionInitialDelay = 5 * time.Second
	DefaultRetentionInterval     = 24 * time.Hour
	DefaultRetentionDays         = 90
	DefaultRetentionRunTimeout   = 10 * time.Minute

	// Events defaults
	DefaultEventsEnabled        = false
	DefaultEventsNATSURL        = "nats://127.0.0.1:4222"
	DefaultEventsSubjectPrefix  = "alpr"
	DefaultEventsConnectTimeout = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "alpr"
)

// Default returns a configuration with every field set to its default.
// Loading decodes the YAML file on top of it, so boolean defaults survive
// when the file does not mention them and explicit false still wins.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.CORS.Enabled = DefaultCORSEnabled
	cfg.Events.Enabled = DefaultEventsEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean fields
// are left alone; see Default.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Storage defaults
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultStorageDriver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = DefaultStorageMaxOpenConns
	}
	if cfg.Storage.MaxIdleConns == 0 {
		cfg.Storage.MaxIdleConns = DefaultStorageMaxIdleConns
	}
	if cfg.Storage.JournalMode == "" {
		cfg.Storage.JournalMode = DefaultStorageJournalMode
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultStorageBusyTimeout
	}

	// Retention defaults
	if cfg.Retention.InitialDelay == 0 {
		cfg.Retention.InitialDelay = DefaultRetentionInitialDelay
	}
	if cfg.Retention.Interval == 0 {
		cfg.Retention.Interval = DefaultRetentionInterval
	}
	if cfg.Retention.DefaultDays == 0 {
		cfg.Retention.DefaultDays = DefaultRetentionDays
	}
	if cfg.Retention.RunTimeout == 0 {
		cfg.Retention.RunTimeout = DefaultRetentionRunTimeout
	}

	// Events defaults
	if cfg.Events.NATSURL == "" {
		cfg.Events.NATSURL = DefaultEventsNATSURL
	}
	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = DefaultEventsSubjectPrefix
	}
	if cfg.Events.ConnectTimeout == 0 {
		cfg.Events.ConnectTimeout = DefaultEventsConnectTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}

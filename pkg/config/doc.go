// Package config provides configuration management for the ALPR dashboard
// backend.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// An empty path loads the defaults, which is enough to run the service
// locally.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ALPR_SECTION_FIELD:
//
//   - ALPR_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - ALPR_STORAGE_DRIVER overrides storage.driver
//   - ALPR_RETENTION_INITIAL_DELAY overrides retention.initial_delay
//   - ALPR_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Active Configuration
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    return err
//	}
//	config.SetConfig(cfg)
//
// GetConfig returns the active configuration; ReloadConfig replaces it.
//
// # Hot Reload
//
// Watcher reloads the file on change and hands the new configuration to a
// callback; the server uses it to adjust the log level without a restart.
// Storage, listen address and schedule changes still need a restart.
package config

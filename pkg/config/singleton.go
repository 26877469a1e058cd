package config

import (
	"fmt"
	"sync/atomic"
)

// current is the configuration the process is running with.
var current atomic.Pointer[Config]

// GetConfig returns the active configuration, or nil before SetConfig.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig makes cfg the active configuration.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig loads path with environment overrides. The active
// configuration is replaced only if loading and validation succeed.
func ReloadConfig(path string) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return cfg, nil
}

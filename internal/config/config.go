// Package config loads corekit runtime configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds runtime parameters. Missing fields keep their defaults.
type Config struct {
	// Diagnostics gates trace output on publish and record, and mirrors
	// lifecycle and error events into the telemetry queue.
	Diagnostics bool `toml:"diagnostics"`

	// LogLevel is the zerolog level name (trace, debug, info, warn,
	// error). Empty means info.
	LogLevel string `toml:"log_level"`

	Telemetry TelemetryConfig `toml:"telemetry"`
	HTTP      HTTPConfig      `toml:"http"`
	Plugins   PluginsConfig   `toml:"plugins"`
	State     StateConfig     `toml:"state"`
}

// TelemetryConfig configures the telemetry queue.
type TelemetryConfig struct {
	// Capacity is the maximum number of retained records.
	Capacity int `toml:"capacity"`
}

// HTTPConfig configures the diagnostic HTTP surface.
type HTTPConfig struct {
	// Listen is the address the diagnostic server binds to.
	// Empty disables the server.
	Listen string `toml:"listen"`
}

// PluginsConfig configures the Lua module host.
type PluginsConfig struct {
	// Dir is the directory scanned for *.lua feature modules.
	// Empty disables plugin loading.
	Dir string `toml:"dir"`
}

// StateConfig configures state persistence.
type StateConfig struct {
	// File is the TOML file persisted state is written to.
	// Empty disables persistence.
	File string `toml:"file"`

	// PersistKeys are the state keys written through to File.
	PersistKeys []string `toml:"persist_keys"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Telemetry: TelemetryConfig{
			Capacity: 50,
		},
	}
}

// Load reads the TOML file at path, applied over Default. A missing
// file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Telemetry.Capacity <= 0 {
		cfg.Telemetry.Capacity = Default().Telemetry.Capacity
	}
	return cfg, nil
}

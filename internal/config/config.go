// Package config holds the application configuration: which collectors run,
// where raw trace frames come from, and how the exporter serves metrics.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AppConfig is the complete application configuration.
type AppConfig struct {
	Server     ServerConfig    `json:"server"`
	Source     SourceConfig    `json:"source"`
	Collectors CollectorConfig `json:"collectors"`
	Logging    LoggingConfig   `json:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	ListenAddress string `json:"listen_address"`
	MetricsPath   string `json:"metrics_path"`
}

// SourceConfig describes where raw trace frames are read from and how they
// are decoded. The external loader owns program loading and attachment; it
// hands us a stream of length-prefixed frames over a pipe. Layout selects
// the per-hardware record layout ("core" or "tegra"); empty means
// autodetect from the kernel release.
type SourceConfig struct {
	TracePipe string `json:"trace_pipe"`
	Layout    string `json:"layout,omitempty"`
}

// CollectorConfig defines which collectors are enabled and their settings.
type CollectorConfig struct {
	CPU      CPUConfig      `json:"cpu"`
	MemStall MemStallConfig `json:"mem_stall"`
	Thermal  ThermalConfig  `json:"thermal"`
	Exec     ExecConfig     `json:"exec"`
}

// CPUConfig contains CPU-time collector settings.
type CPUConfig struct {
	Enabled bool `json:"enabled"`
}

// MemStallConfig contains memory-stall collector settings.
type MemStallConfig struct {
	Enabled bool `json:"enabled"`
}

// ThermalConfig contains thermal collector settings.
type ThermalConfig struct {
	Enabled bool `json:"enabled"`
}

// ExecConfig contains exec-event collector settings. The filters apply on
// the consumer side only; every event still goes through the ring.
type ExecConfig struct {
	Enabled    bool   `json:"enabled"`
	PidFilter  uint32 `json:"pid_filter,omitempty"`
	CommFilter string `json:"comm_filter,omitempty"`
}

// LoggingConfig contains the logging configuration.
type LoggingConfig struct {
	Level  string `json:"level"`            // trace, debug, info, warn, error, fatal
	Format string `json:"format"`           // auto, logfmt, glog
	Writer string `json:"writer"`           // stderr, stdout
	File   string `json:"file,omitempty"`   // when set, logs also go to this file
	Async  bool   `json:"async,omitempty"`  // buffer writes through an async writer
	Colors bool   `json:"colors,omitempty"` // colorize console output
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			ListenAddress: ":9190",
			MetricsPath:   "/metrics",
		},
		Source: SourceConfig{
			TracePipe: "/run/edgetrace/trace.pipe",
		},
		Collectors: CollectorConfig{
			CPU:      CPUConfig{Enabled: true},
			MemStall: MemStallConfig{Enabled: true},
			Thermal:  ThermalConfig{Enabled: true},
			Exec:     ExecConfig{Enabled: true},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
			Writer: "stderr",
			Colors: true,
		},
	}
}

// LoadConfig loads configuration from a JSON file, falling back to defaults
// when no path is given or the file does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if configPath == "" {
		return config, nil
	}
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return config, nil
}

// SaveConfig writes the configuration to a JSON file.
func SaveConfig(configPath string, config *AppConfig) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configPath, err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *AppConfig) Validate() error {
	if c.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}
	if c.Server.MetricsPath == "" {
		return fmt.Errorf("server.metrics_path cannot be empty")
	}
	if !c.Collectors.CPU.Enabled && !c.Collectors.MemStall.Enabled &&
		!c.Collectors.Thermal.Enabled && !c.Collectors.Exec.Enabled {
		return fmt.Errorf("at least one collector must be enabled")
	}
	switch c.Source.Layout {
	case "", "core", "tegra":
	default:
		return fmt.Errorf("unknown record layout %q (want core or tegra)", c.Source.Layout)
	}
	return nil
}

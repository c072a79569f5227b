package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestConfigData tests configuration data, defaults, edge cases, and validation
func TestConfigData(t *testing.T) {
	tests := []struct {
		name       string
		config     *AppConfig
		configJSON string
		setupFunc  func(*AppConfig)
		expectErr  bool
		validate   func(*testing.T, *AppConfig)
	}{
		{
			name:   "default config",
			config: DefaultConfig(),
			validate: func(t *testing.T, c *AppConfig) {
				if c.Server.ListenAddress != ":9190" {
					t.Errorf("Expected ListenAddress ':9190', got %s", c.Server.ListenAddress)
				}
				if c.Logging.Level != "info" {
					t.Errorf("Expected default log level 'info', got %s", c.Logging.Level)
				}
				if c.Source.TracePipe == "" {
					t.Error("Expected a default trace pipe path")
				}
				if !c.Collectors.CPU.Enabled || !c.Collectors.Thermal.Enabled {
					t.Error("Expected all collectors enabled by default")
				}
			},
		},
		{
			name: "custom config",
			configJSON: `{
  "server": {"listen_address": ":8080", "metrics_path": "/custom"},
  "source": {"layout": "tegra"},
  "collectors": {"exec": {"enabled": true, "pid_filter": 42, "comm_filter": "nginx"}},
  "logging": {"level": "debug", "format": "logfmt", "writer": "stdout"}
}`,
			validate: func(t *testing.T, c *AppConfig) {
				if c.Server.ListenAddress != ":8080" {
					t.Errorf("Expected :8080, got %s", c.Server.ListenAddress)
				}
				if c.Server.MetricsPath != "/custom" {
					t.Errorf("Expected /custom, got %s", c.Server.MetricsPath)
				}
				if c.Source.Layout != "tegra" {
					t.Errorf("Expected tegra layout, got %s", c.Source.Layout)
				}
				if c.Collectors.Exec.PidFilter != 42 || c.Collectors.Exec.CommFilter != "nginx" {
					t.Errorf("Unexpected exec filters: %+v", c.Collectors.Exec)
				}
				if c.Logging.Level != "debug" {
					t.Errorf("Expected debug level, got %s", c.Logging.Level)
				}
			},
		},
		{
			name:   "invalid empty listen address",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				c.Server.ListenAddress = ""
			},
			expectErr: true,
		},
		{
			name:   "invalid no collectors enabled",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				c.Collectors.CPU.Enabled = false
				c.Collectors.MemStall.Enabled = false
				c.Collectors.Thermal.Enabled = false
				c.Collectors.Exec.Enabled = false
			},
			expectErr: true,
		},
		{
			name:   "invalid record layout",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				c.Source.Layout = "m1"
			},
			expectErr: true,
		},
		{
			name:   "empty layout means autodetect",
			config: DefaultConfig(),
			setupFunc: func(c *AppConfig) {
				c.Source.Layout = ""
			},
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg *AppConfig

			// Get config from direct config, JSON, or setup function
			if tt.config != nil {
				cfg = tt.config
				if tt.setupFunc != nil {
					tt.setupFunc(cfg)
				}
			} else {
				tmpDir := t.TempDir()
				path := filepath.Join(tmpDir, "test.json")
				os.WriteFile(path, []byte(tt.configJSON), 0644)
				var err error
				cfg, err = LoadConfig(path)
				if err != nil {
					t.Fatalf("Failed to load config: %v", err)
				}
			}

			// Test validation
			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected validation error but got none")
			} else if !tt.expectErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}

			// Run custom validation if provided and config is valid
			if !tt.expectErr && tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

// TestLoadConfig tests loading configurations with fallbacks and validation
func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name       string
		configJSON string
		configPath string
		expectErr  bool
	}{
		{
			name:       "non-existent file returns defaults",
			configPath: "nonexistent.json",
		},
		{
			name:       "empty path returns defaults",
			configPath: "",
		},
		{
			name: "partial config keeps defaults",
			configJSON: `{
  "server": {"listen_address": ":7070", "metrics_path": "/metrics"}
}`,
		},
		{
			name:       "invalid JSON returns error",
			configJSON: `{"server": {`,
			expectErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := tt.configPath
			if tt.configJSON != "" {
				tmpDir := t.TempDir()
				configPath = filepath.Join(tmpDir, "test.json")
				if err := os.WriteFile(configPath, []byte(tt.configJSON), 0644); err != nil {
					t.Fatalf("Failed to create test config: %v", err)
				}
			}

			config, err := LoadConfig(configPath)

			if tt.expectErr {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if tt.name == "partial config keeps defaults" {
				if config.Server.ListenAddress != ":7070" {
					t.Errorf("Expected :7070, got %s", config.Server.ListenAddress)
				}
				// Fields absent from the file keep their defaults.
				if config.Logging.Level != "info" {
					t.Errorf("Expected default log level, got %s", config.Logging.Level)
				}
				if !config.Collectors.CPU.Enabled {
					t.Error("Expected default collectors to stay enabled")
				}
			}

			// All valid configs should pass validation
			if err := config.Validate(); err != nil {
				t.Errorf("Config validation failed: %v", err)
			}
		})
	}
}

// TestSaveConfig tests saving configurations
func TestSaveConfig(t *testing.T) {
	t.Run("save and load roundtrip", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "subdir", "test.json")

		original := DefaultConfig()
		original.Server.ListenAddress = ":7777"
		original.Logging.Level = "debug"
		original.Source.Layout = "core"

		// Save config
		err := SaveConfig(configPath, original)
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		// Load it back
		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}

		// Verify key values
		if loaded.Server.ListenAddress != ":7777" {
			t.Errorf("Expected :7777, got %s", loaded.Server.ListenAddress)
		}
		if loaded.Logging.Level != "debug" {
			t.Errorf("Expected debug, got %s", loaded.Logging.Level)
		}
		if loaded.Source.Layout != "core" {
			t.Errorf("Expected core layout, got %s", loaded.Source.Layout)
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		config := DefaultConfig()
		err := SaveConfig("\x00invalid", config)
		if err == nil {
			t.Error("Expected error for invalid path")
		}
	})
}

// Package config handles configuration loading for snowctl.
//
// Configuration is optional: the client works against localhost defaults
// with no rc file at all. When present, the rc file supplies the server
// address, timeouts, and log settings; command-line flags override it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the rc file is absent or silent.
const (
	DefaultHost           = "localhost"
	DefaultPort           = 9001
	DefaultConnectTimeout = 30 * time.Second
	DefaultRequestTimeout = time.Hour
)

// LogConfig holds log settings from the rc file.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// File is an optional log file path (rotated).
	File string
	// MaxSizeMB and MaxBackups control rotation.
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// Config represents the complete snowctl configuration.
type Config struct {
	// Host and Port locate the Snow SSE server.
	Host string
	Port int
	// ConnectTimeout bounds the connect/handshake phase.
	ConnectTimeout time.Duration
	// RequestTimeout bounds an entire operation.
	RequestTimeout time.Duration
	// Log holds logging settings.
	Log LogConfig
}

// rawConfig is used for YAML unmarshaling.
type rawConfig struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Timeouts struct {
		Connect string `yaml:"connect"`
		Request string `yaml:"request"`
	} `yaml:"timeouts"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		ConnectTimeout: DefaultConnectTimeout,
		RequestTimeout: DefaultRequestTimeout,
		Log:            LogConfig{Level: "info"},
	}
}

// DefaultConfigPath returns the rc file path for the current platform.
func DefaultConfigPath() string {
	// Environment variable override first.
	if envPath := os.Getenv("SNOWCTLRC"); envPath != "" {
		return envPath
	}

	var configDir string
	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, _ := os.UserHomeDir()
		configDir = home
	default: // linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = xdgConfig
		} else {
			home, _ := os.UserHomeDir()
			configDir = home
		}
	}

	return filepath.Join(configDir, ".snowctlrc")
}

// Load reads and parses the configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// LoadDefault loads the rc file from the default path, falling back to the
// built-in defaults when no file exists.
func LoadDefault() (*Config, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Parse parses YAML configuration data, applying defaults for anything
// left unset.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := Default()
	if raw.Server.Host != "" {
		cfg.Host = raw.Server.Host
	}
	if raw.Server.Port != 0 {
		cfg.Port = raw.Server.Port
	}
	if raw.Timeouts.Connect != "" {
		d, err := time.ParseDuration(raw.Timeouts.Connect)
		if err != nil {
			return nil, fmt.Errorf("invalid connect timeout %q: %w", raw.Timeouts.Connect, err)
		}
		cfg.ConnectTimeout = d
	}
	if raw.Timeouts.Request != "" {
		d, err := time.ParseDuration(raw.Timeouts.Request)
		if err != nil {
			return nil, fmt.Errorf("invalid request timeout %q: %w", raw.Timeouts.Request, err)
		}
		cfg.RequestTimeout = d
	}
	if raw.Log.Level != "" {
		cfg.Log.Level = raw.Log.Level
	}
	cfg.Log.File = raw.Log.File
	cfg.Log.MaxSizeMB = raw.Log.MaxSizeMB
	cfg.Log.MaxBackups = raw.Log.MaxBackups
	cfg.Log.Compress = raw.Log.Compress

	return cfg, nil
}

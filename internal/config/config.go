// Package config manages application-level configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/shini4i/pptpd-monitor/internal/fileutil"
	"github.com/shini4i/pptpd-monitor/internal/probe"
)

const (
	// AppName is the application identifier used for XDG paths.
	AppName = "pptpd-monitor"
	// ConfigFileName is the name of the main configuration file.
	ConfigFileName = "config.json"
	// ConfigPathEnv overrides the configuration file location.
	ConfigPathEnv = "PPTPD_MONITOR_CONFIG"
)

// Config represents the application configuration.
type Config struct {
	LogFile      string `json:"logfile"`
	Rotated      bool   `json:"rotated"`
	Watch        bool   `json:"watch"`
	DelaySeconds int    `json:"delay_seconds"`
	Probe        string `json:"probe"`
	Follow       bool   `json:"follow"`
}

// DefaultLogFile returns the syslog file pptpd writes to on this platform
// when debug logging is enabled in /etc/ppp/pptpd-options.
func DefaultLogFile() string {
	switch runtime.GOOS {
	case "darwin":
		return "/var/log/system.log"
	default:
		return "/var/log/messages"
	}
}

// DefaultProbe returns the interface counter source for this platform.
// Only Linux has /sys/class/net.
func DefaultProbe() string {
	return defaultProbe(runtime.GOOS)
}

func defaultProbe(goos string) string {
	if goos == "linux" {
		return probe.KindSysfs
	}
	return probe.KindIfconfig
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogFile:      DefaultLogFile(),
		Rotated:      true,
		Watch:        false,
		DelaySeconds: 2,
		Probe:        DefaultProbe(),
		Follow:       false,
	}
}

// Path returns the configuration file path. PPTPD_MONITOR_CONFIG takes
// precedence, then the XDG Base Directory location.
func Path() (string, error) {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p, nil
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configHome, AppName, ConfigFileName), nil
}

// Load reads the configuration from disk. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user configuration path
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to disk atomically, creating its directory
// if needed.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileutil.AtomicWrite(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.LogFile == "" {
		return fmt.Errorf("logfile must not be empty")
	}
	if c.DelaySeconds < 0 {
		return fmt.Errorf("delay must be non-negative")
	}
	if c.Watch && c.DelaySeconds == 0 && !c.Follow {
		return fmt.Errorf("delay must be positive in watch mode")
	}
	if !slices.Contains(probe.Kinds(), c.Probe) {
		return fmt.Errorf("unknown probe %q, expected one of %v", c.Probe, probe.Kinds())
	}
	return nil
}

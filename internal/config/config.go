// Package config loads the optional FGP config file (config.toml in the FGP
// home by default). The file seeds defaults for the monitor and the MCP
// bridge; command-line flags override it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fgp-tools/fgp/internal/errors"
)

const (
	// DefaultMonitorInterval is the watchdog polling cadence when neither the
	// config file nor flags specify one.
	DefaultMonitorInterval = 30 * time.Second

	// DefaultRestartDelay is the pause before an automatic restart attempt.
	DefaultRestartDelay = 2 * time.Second

	// DefaultMaxRestarts bounds automatic restart attempts per service.
	// Zero means unlimited.
	DefaultMaxRestarts = 3

	// DefaultStartTimeout is how long the bridge waits for an auto-started
	// daemon to expose its socket.
	DefaultStartTimeout = 500 * time.Millisecond
)

// Loader loads application configuration.
type Loader interface {
	Load(path string) (*Config, error)
}

// Config is the decoded config file.
type Config struct {
	Monitor *MonitorSection `toml:"monitor,omitempty"`
	MCP     *MCPSection     `toml:"mcp,omitempty"`
}

// MonitorSection configures the health watchdog.
type MonitorSection struct {
	// Interval between polling passes.
	Interval *Duration `toml:"interval,omitempty"`

	// AutoRestart enables the restart policy for crashed services.
	AutoRestart *bool `toml:"auto_restart,omitempty"`

	// MaxRestarts caps restart attempts per service (0 = unlimited).
	MaxRestarts *uint `toml:"max_restarts,omitempty"`

	// RestartDelay is the pause before each restart attempt.
	RestartDelay *Duration `toml:"restart_delay,omitempty"`
}

// MCPSection configures the MCP bridge.
type MCPSection struct {
	// StartTimeout bounds the wait for an auto-started daemon to become reachable.
	StartTimeout *Duration `toml:"start_timeout,omitempty"`
}

// Duration is a time.Duration that marshals as a string like "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d *Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(*d).String()), nil
}

// DefaultLoader loads configuration from a TOML file.
type DefaultLoader struct{}

// Load reads and validates the config file at path. A missing file is not an
// error; it yields an empty config so every setting falls back to defaults.
func (l *DefaultLoader) Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return &Config{}, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("%w: failed to stat config file (%s): %w", errors.ErrConfigLoadFailed, path, err)
	}

	var cfg *Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config from file (%s): %w", errors.ErrConfigLoadFailed, path, err)
	}
	if cfg == nil {
		cfg = &Config{}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: failed to validate config (%s): %w", errors.ErrConfigLoadFailed, path, err)
	}

	return cfg, nil
}

// validate checks decoded values for impossible settings.
func (c *Config) validate() error {
	if c.Monitor != nil {
		if c.Monitor.Interval != nil && time.Duration(*c.Monitor.Interval) <= 0 {
			return fmt.Errorf("monitor interval must be positive")
		}
		if c.Monitor.RestartDelay != nil && time.Duration(*c.Monitor.RestartDelay) < 0 {
			return fmt.Errorf("monitor restart delay cannot be negative")
		}
	}

	if c.MCP != nil {
		if c.MCP.StartTimeout != nil && time.Duration(*c.MCP.StartTimeout) <= 0 {
			return fmt.Errorf("mcp start timeout must be positive")
		}
	}

	return nil
}

// MonitorInterval returns the configured polling interval or the default.
func (c *Config) MonitorInterval() time.Duration {
	if c.Monitor != nil && c.Monitor.Interval != nil {
		return time.Duration(*c.Monitor.Interval)
	}
	return DefaultMonitorInterval
}

// MonitorAutoRestart returns the configured auto-restart flag, defaulting to off.
func (c *Config) MonitorAutoRestart() bool {
	if c.Monitor != nil && c.Monitor.AutoRestart != nil {
		return *c.Monitor.AutoRestart
	}
	return false
}

// MonitorMaxRestarts returns the configured restart cap or the default.
func (c *Config) MonitorMaxRestarts() uint {
	if c.Monitor != nil && c.Monitor.MaxRestarts != nil {
		return *c.Monitor.MaxRestarts
	}
	return DefaultMaxRestarts
}

// MonitorRestartDelay returns the configured restart delay or the default.
func (c *Config) MonitorRestartDelay() time.Duration {
	if c.Monitor != nil && c.Monitor.RestartDelay != nil {
		return time.Duration(*c.Monitor.RestartDelay)
	}
	return DefaultRestartDelay
}

// MCPStartTimeout returns the configured auto-start wait or the default.
func (c *Config) MCPStartTimeout() time.Duration {
	if c.MCP != nil && c.MCP.StartTimeout != nil {
		return time.Duration(*c.MCP.StartTimeout)
	}
	return DefaultStartTimeout
}

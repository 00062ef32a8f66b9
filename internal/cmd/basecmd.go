package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/fgp-tools/fgp/internal/config"
	"github.com/fgp-tools/fgp/internal/contracts"
	"github.com/fgp-tools/fgp/internal/fgpc"
	"github.com/fgp-tools/fgp/internal/flags"
	"github.com/fgp-tools/fgp/internal/lifecycle"
	"github.com/fgp-tools/fgp/internal/notify"
	"github.com/fgp-tools/fgp/internal/perms"
	"github.com/fgp-tools/fgp/internal/registry"
)

// BaseCmd carries the logger and shared wiring for all CLI commands.
type BaseCmd struct {
	logger hclog.Logger
}

// SetLogger updates the command's logger.
func (c *BaseCmd) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Logger returns the current logger for the command, building a fallback
// from flags and environment when none was injected. Log output defaults to
// discard: stdout belongs to the MCP protocol when serving.
func (c *BaseCmd) Logger() hclog.Logger {
	if c.logger != nil {
		return c.logger
	}

	logLevel := flags.LogLevel
	if logLevel == "" {
		logLevel = strings.ToLower(os.Getenv(flags.EnvVarLogLevel))
		if logLevel == "" {
			logLevel = flags.DefaultLogLevel
		}
	}

	logPath := flags.LogPath
	if logPath == "" {
		logPath = strings.TrimSpace(os.Getenv(flags.EnvVarLogPath))
	}

	var output io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, perms.RegularFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file (%s): %v, logging disabled\n", logPath, err)
		} else {
			output = f
		}
	}

	c.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "fgp",
		Level:  hclog.LevelFromString(logLevel),
		Output: output,
	})

	return c.logger
}

// LoadConfig loads the config file named by flags (missing file is fine).
func (c *BaseCmd) LoadConfig() (*config.Config, error) {
	loader := &config.DefaultLoader{}
	return loader.Load(flags.ConfigFile)
}

// CreateRegistry builds the directory-backed service registry for the
// configured FGP home.
func (c *BaseCmd) CreateRegistry() (*registry.DirRegistry, error) {
	return registry.NewDirRegistry(c.Logger(), flags.Home)
}

// CreateDialer builds the daemon RPC dialer.
func (c *BaseCmd) CreateDialer() *fgpc.Dialer {
	return fgpc.NewDialer()
}

// CreateLifecycle builds the service lifecycle manager.
func (c *BaseCmd) CreateLifecycle(reg *registry.DirRegistry, dialer contracts.DaemonDialer) (*lifecycle.Manager, error) {
	return lifecycle.NewManager(c.Logger(), reg, dialer)
}

// CreateNotifier builds the desktop notification sink.
func (c *BaseCmd) CreateNotifier() (*notify.SystemNotifier, error) {
	return notify.NewSystemNotifier(c.Logger())
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fgp-tools/fgp/internal/cmd"
	"github.com/fgp-tools/fgp/internal/monitor"
)

// MonitorCmd should be used to represent the 'monitor' command.
type MonitorCmd struct {
	*cmd.BaseCmd
	Interval     time.Duration
	AutoRestart  bool
	MaxRestarts  uint
	RestartDelay time.Duration
}

// NewMonitorCmd creates a newly configured (Cobra) command.
func NewMonitorCmd(baseCmd *cmd.BaseCmd) *cobra.Command {
	c := &MonitorCmd{
		BaseCmd: baseCmd,
	}

	cobraCommand := &cobra.Command{
		Use:   "monitor",
		Short: "Watch FGP daemon health, notify on changes and optionally auto-restart.",
		Long: `Polls every installed service on a fixed interval, classifies state
transitions (crash, unexpected stop, degraded, recovery) and raises desktop
notifications. With --auto-restart, crashed services are restarted with a
bounded number of attempts.`,
		RunE: c.run,
	}

	cobraCommand.Flags().DurationVar(&c.Interval, "interval", 0, "polling interval (default from config, 30s)")
	cobraCommand.Flags().BoolVar(&c.AutoRestart, "auto-restart", false, "automatically restart crashed services")
	cobraCommand.Flags().UintVar(&c.MaxRestarts, "max-restarts", 0, "max restart attempts per service, 0 = unlimited (default from config)")
	cobraCommand.Flags().DurationVar(&c.RestartDelay, "restart-delay", 0, "delay before each restart attempt (default from config, 2s)")

	return cobraCommand
}

func (c *MonitorCmd) run(cobraCmd *cobra.Command, args []string) error {
	fileCfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	cfg := monitor.Config{
		Interval:     fileCfg.MonitorInterval(),
		AutoRestart:  fileCfg.MonitorAutoRestart() || c.AutoRestart,
		MaxRestarts:  fileCfg.MonitorMaxRestarts(),
		RestartDelay: fileCfg.MonitorRestartDelay(),
	}

	// Explicit flags win over the config file.
	if cobraCmd.Flags().Changed("interval") {
		cfg.Interval = c.Interval
	}
	if cobraCmd.Flags().Changed("max-restarts") {
		cfg.MaxRestarts = c.MaxRestarts
	}
	if cobraCmd.Flags().Changed("restart-delay") {
		cfg.RestartDelay = c.RestartDelay
	}

	reg, err := c.CreateRegistry()
	if err != nil {
		return err
	}

	dialer := c.CreateDialer()

	lc, err := c.CreateLifecycle(reg, dialer)
	if err != nil {
		return err
	}

	notifier, err := c.CreateNotifier()
	if err != nil {
		return err
	}

	supervisor, err := monitor.NewSupervisor(c.Logger(), reg, dialer, lc, notifier, cfg)
	if err != nil {
		return fmt.Errorf("failed to create watchdog: %w", err)
	}

	fmt.Printf("Monitoring FGP services every %s (Ctrl+C to stop)...\n", cfg.Interval)
	if cfg.AutoRestart {
		max := "unlimited"
		if cfg.MaxRestarts > 0 {
			max = fmt.Sprintf("%d", cfg.MaxRestarts)
		}
		fmt.Printf("Auto-restart enabled (max: %s, delay: %s)\n", max, cfg.RestartDelay)
	}
	fmt.Println()

	return supervisor.Run(cobraCmd.Context())
}

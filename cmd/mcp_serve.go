package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fgp-tools/fgp/internal/bridge"
	"github.com/fgp-tools/fgp/internal/cmd"
)

// MCPServeCmd should be used to represent the 'mcp serve' command.
type MCPServeCmd struct {
	*cmd.BaseCmd
}

// NewMCPServeCmd creates a newly configured (Cobra) command.
func NewMCPServeCmd(baseCmd *cmd.BaseCmd) *cobra.Command {
	c := &MCPServeCmd{
		BaseCmd: baseCmd,
	}

	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP bridge on stdio.",
		Long: `Runs an MCP server on stdio that exposes every installed FGP daemon's
RPC methods as tools. Daemons are started on demand when a tool call targets
one that is not running. Intended to be launched by an MCP client, e.g. via
'fgp mcp install'.`,
		RunE: c.run,
	}
}

func (c *MCPServeCmd) run(cobraCmd *cobra.Command, args []string) error {
	cfg, err := c.LoadConfig()
	if err != nil {
		return err
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

	b, err := bridge.NewBridge(c.Logger(), reg, dialer, lc, cfg.MCPStartTimeout(), version)
	if err != nil {
		return fmt.Errorf("failed to create MCP bridge: %w", err)
	}

	return b.Serve(cobraCmd.Context(), os.Stdin, os.Stdout)
}

package cmd

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/fgp-tools/fgp/internal/cmd"
)

// MCPInstallCmd should be used to represent the 'mcp install' command.
type MCPInstallCmd struct {
	*cmd.BaseCmd
}

// NewMCPInstallCmd creates a newly configured (Cobra) command.
func NewMCPInstallCmd(baseCmd *cmd.BaseCmd) *cobra.Command {
	c := &MCPInstallCmd{
		BaseCmd: baseCmd,
	}

	return &cobra.Command{
		Use:   "install",
		Short: "Register the FGP bridge with Claude Code.",
		Long:  `Registers 'fgp mcp serve' as an MCP server with Claude Code by running 'claude mcp add'.`,
		RunE:  c.run,
	}
}

func (c *MCPInstallCmd) run(cobraCmd *cobra.Command, args []string) error {
	fmt.Println("Registering FGP with Claude Code...")

	install := exec.Command("claude", "mcp", "add", "fgp", "--", "fgp", "mcp", "serve")
	if err := install.Run(); err != nil {
		return fmt.Errorf("failed to run 'claude mcp add', is Claude Code installed?: %w", err)
	}

	fmt.Println("FGP registered with Claude Code.")
	fmt.Println()
	fmt.Println("Verify with: claude mcp list")

	return nil
}

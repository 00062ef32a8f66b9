package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fgp-tools/fgp/internal/cmd"
)

// NewMCPCmd groups the MCP bridge commands.
func NewMCPCmd(baseCmd *cmd.BaseCmd) *cobra.Command {
	cobraCommand := &cobra.Command{
		Use:   "mcp",
		Short: "Bridge FGP daemons to MCP-compatible clients.",
	}

	cobraCommand.AddCommand(NewMCPServeCmd(baseCmd))
	cobraCommand.AddCommand(NewMCPInstallCmd(baseCmd))
	cobraCommand.AddCommand(NewMCPToolsCmd(baseCmd))

	return cobraCommand
}

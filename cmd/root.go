package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fgp-tools/fgp/internal/cmd"
	"github.com/fgp-tools/fgp/internal/flags"
)

var version = "dev" // Set at build time using -ldflags

// RootCmd should be used to represent the root 'fgp' command.
type RootCmd struct {
	*cmd.BaseCmd
}

// Execute runs the CLI.
func Execute() error {
	rootCmd := NewRootCmd()
	return rootCmd.Execute()
}

// NewRootCmd creates the fully wired root command.
func NewRootCmd() *cobra.Command {
	c := &RootCmd{
		BaseCmd: &cmd.BaseCmd{},
	}

	rootCmd := &cobra.Command{
		Use:          "fgp <command> [args]",
		Short:        "'fgp' manages local FGP service daemons and bridges them to MCP clients.",
		Long:         c.longDescription(),
		SilenceUsage: true,
		Version:      version,
	}

	// Global flags
	flags.InitFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(NewMCPCmd(c.BaseCmd))
	rootCmd.AddCommand(NewMonitorCmd(c.BaseCmd))
	rootCmd.AddCommand(NewStatusCmd(c.BaseCmd))

	return rootCmd
}

func (c *RootCmd) longDescription() string {
	return `The 'fgp' CLI supervises locally installed FGP service daemons.
It exposes their RPC methods to AI assistants as MCP tools ('fgp mcp serve')
and watches their health with optional automatic restarts ('fgp monitor').`
}

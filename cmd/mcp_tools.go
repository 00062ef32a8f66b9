package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fgp-tools/fgp/internal/bridge"
	"github.com/fgp-tools/fgp/internal/cmd"
	"github.com/fgp-tools/fgp/internal/domain"
	"github.com/fgp-tools/fgp/internal/fgpc"
)

// MCPToolsCmd should be used to represent the 'mcp tools' command.
type MCPToolsCmd struct {
	*cmd.BaseCmd
}

// NewMCPToolsCmd creates a newly configured (Cobra) command.
func NewMCPToolsCmd(baseCmd *cmd.BaseCmd) *cobra.Command {
	c := &MCPToolsCmd{
		BaseCmd: baseCmd,
	}

	return &cobra.Command{
		Use:   "tools",
		Short: "List the MCP tools available from installed daemons.",
		RunE:  c.run,
	}
}

// serviceToolListing is the collected tool info for one service.
type serviceToolListing struct {
	name    string
	running bool
	failed  bool
	methods []domain.MethodSpec
}

func (c *MCPToolsCmd) run(cobraCmd *cobra.Command, args []string) error {
	reg, err := c.CreateRegistry()
	if err != nil {
		return err
	}

	dialer := c.CreateDialer()
	services := reg.List()

	fmt.Println("FGP MCP Tools")
	fmt.Println("==============================================")
	fmt.Println()

	if len(services) == 0 {
		fmt.Println("No FGP services installed")
		return nil
	}

	listings := make([]serviceToolListing, len(services))

	// Daemons are queried concurrently; output stays in registry order.
	g, ctx := errgroup.WithContext(cobraCmd.Context())
	for i, service := range services {
		g.Go(func() error {
			listings[i] = serviceToolListing{name: service}

			if !reg.Reachable(service) {
				return nil
			}
			listings[i].running = true

			client, err := dialer.Dial(reg.SocketPath(service))
			if err != nil {
				listings[i].failed = true
				return nil
			}

			resp, err := client.Methods(ctx)
			if err != nil || !resp.OK {
				listings[i].failed = true
				return nil
			}

			var payload domain.MethodsPayload
			if err := json.Unmarshal(resp.Result, &payload); err != nil {
				listings[i].failed = true
				return nil
			}

			listings[i].methods = payload.Methods
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := 0
	for _, listing := range listings {
		fmt.Println(listing.name)

		switch {
		case !listing.running:
			fmt.Println("  (not running)")
		case listing.failed:
			fmt.Println("  error fetching methods")
		default:
			for _, method := range listing.methods {
				if method.Name == fgpc.MethodHealth || method.Name == fgpc.MethodStop || method.Name == fgpc.MethodMethods {
					continue
				}
				description := method.Description
				if description == "" {
					description = "No description"
				}
				fmt.Printf("  %s - %s\n", bridge.EncodeToolName(listing.name, method.Name), description)
				total++
			}
		}

		fmt.Println()
	}

	fmt.Println("Meta-Tools")
	fmt.Printf("  %s - List all FGP daemons with their status\n", bridge.MetaToolListDaemons)
	fmt.Printf("  %s - Start an FGP daemon\n", bridge.MetaToolStartDaemon)
	fmt.Printf("  %s - Stop an FGP daemon\n", bridge.MetaToolStopDaemon)
	fmt.Println()
	fmt.Printf("Total: %d tools available\n", total+3)

	return nil
}

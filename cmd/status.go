package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fgp-tools/fgp/internal/cmd"
	"github.com/fgp-tools/fgp/internal/domain"
)

// StatusCmd should be used to represent the 'status' command.
type StatusCmd struct {
	*cmd.BaseCmd
}

// NewStatusCmd creates a newly configured (Cobra) command.
func NewStatusCmd(baseCmd *cmd.BaseCmd) *cobra.Command {
	c := &StatusCmd{
		BaseCmd: baseCmd,
	}

	return &cobra.Command{
		Use:   "status",
		Short: "Show the current state of every installed service.",
		RunE:  c.run,
	}
}

func (c *StatusCmd) run(cobraCmd *cobra.Command, args []string) error {
	reg, err := c.CreateRegistry()
	if err != nil {
		return err
	}

	dialer := c.CreateDialer()
	services := reg.List()

	if len(services) == 0 {
		fmt.Println("No FGP services installed")
		return nil
	}

	states := make([]domain.ServiceState, len(services))

	g, ctx := errgroup.WithContext(cobraCmd.Context())
	for i, service := range services {
		g.Go(func() error {
			if !reg.Reachable(service) {
				states[i] = domain.StateStopped
				return nil
			}

			client, err := dialer.Dial(reg.SocketPath(service))
			if err != nil {
				states[i] = domain.StateError
				return nil
			}

			resp, err := client.Health(ctx)
			states[i] = domain.ClassifyHealth(resp, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, service := range services {
		fmt.Printf("%-24s %s\n", service, states[i])
	}

	return nil
}

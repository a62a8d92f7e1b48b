package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newSyncCmd() *cobra.Command {
	var dev bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the environment with the lock file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Sync(cmd.Context(), dev)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "Also install development dependencies")
	return cmd
}

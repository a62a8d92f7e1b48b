package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newLockCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Resolve the manifest and write the lock file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Lock(cmd.Context(), force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-resolve even when the lock file is fresh")
	return cmd
}

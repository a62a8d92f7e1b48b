// Package commands implements the CLI commands for the pakt package manager.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.trai.ch/pakt/internal/app"
)

// CLI represents the command line interface for pakt.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	var workdir string
	rootCmd := &cobra.Command{
		Use:           "pakt",
		Short:         "A fast project-oriented package manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			a.SetWorkdir(workdir)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&workdir, "directory", "C", ".", "Project directory containing the manifest")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newLockCmd())
	rootCmd.AddCommand(c.newSyncCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

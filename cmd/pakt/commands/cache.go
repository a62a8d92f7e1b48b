package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/pakt/internal/core/ports"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the artifact cache",
	}
	cmd.AddCommand(c.newCacheDirCmd())
	cmd.AddCommand(c.newCacheEvictCmd())
	return cmd
}

func (c *CLI) newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(c.app.CacheDir())
		},
	}
}

func (c *CLI) newCacheEvictCmd() *cobra.Command {
	var maxBytes int64
	var maxAge int64
	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Remove cache entries beyond the size or age bound",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.app.CacheEvict(ports.EvictPolicy{
				MaxBytes:      maxBytes,
				MaxAgeSeconds: maxAge,
			})
		},
	}
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "Total cache size to keep (0 = unbounded)")
	cmd.Flags().Int64Var(&maxAge, "max-age", 0, "Entry age in seconds to keep (0 = unbounded)")
	return cmd
}

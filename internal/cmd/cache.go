package cmd

import (
	"fmt"

	"github.com/Digital-Shane/moviedb/internal/provider/tmdb"
	"github.com/spf13/cobra"
)

func newCacheCommand(app *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Disk cache utilities",
	}
	cacheCmd.AddCommand(newCachePruneCommand(app))
	return cacheCmd
}

func newCachePruneCommand(app *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete cached documents older than the freshness window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := app.ensureLogger(cmd)
			if err != nil {
				return err
			}

			diskCache := tmdb.NewDiskCache(cfg.Cache.Dir, cfg.Freshness(), logger)
			result, err := diskCache.Prune(cmd.Context())
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d cached files (%d bytes) from %s\n",
				result.Removed, result.Scanned, result.Bytes, diskCache.Root())
			return nil
		},
	}
}

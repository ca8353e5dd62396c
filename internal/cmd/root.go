package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Execute runs the root command and exits non-zero on failure. It is called
// by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// NewRootCommand builds the moviedb command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&commandContext{})
}

func newRootCommand(app *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "moviedb",
		Short: "Fetch, cache and select TMDB metadata and images",
		Long: `moviedb looks up movies, series, seasons, episodes, people and collections
on The Movie Database, keeps the documents in a local disk cache and selects
the images a media library should use.

Requests are throttled, non-English lookups fall back to English for missing
overviews, and cached documents are reused for 48 hours by default.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Configuration file path (default ~/.moviedb/config.toml)")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(newMetadataCommand(app))
	rootCmd.AddCommand(newImagesCommand(app))
	rootCmd.AddCommand(newSearchCommand(app))
	rootCmd.AddCommand(newIdentifyCommand(app))
	rootCmd.AddCommand(newPrefetchCommand(app))
	rootCmd.AddCommand(newServeCommand(app))
	rootCmd.AddCommand(newCacheCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

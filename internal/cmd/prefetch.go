package cmd

import (
	"fmt"

	"github.com/Digital-Shane/moviedb/internal/core"
	"github.com/Digital-Shane/moviedb/internal/tui/progress"
	"github.com/Digital-Shane/moviedb/internal/tui/theme"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newPrefetchCommand(app *commandContext) *cobra.Command {
	var workers int
	var noImages bool
	var interactive bool

	cmd := &cobra.Command{
		Use:   "prefetch <file>",
		Short: "Warm the cache for a list of entities",
		Long: `Warm the disk cache for every entity listed in a TOML file.

Series are resolved before their seasons and episodes. Items that fail are
reported at the end and do not stop the rest of the batch. With --tui a live
progress view is shown and failed lookups can be retried under a corrected
name before the report is printed.

  language = "de"

  [[item]]
  kind = "movie"
  tmdb = "603"

  [[item]]
  kind = "episode"
  series = "Breaking Bad"
  season = 1
  episode = 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := core.LoadPrefetchFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := app.ensureRegistry(cmd)
			if err != nil {
				return err
			}
			logger, err := app.ensureLogger(cmd)
			if err != nil {
				return err
			}

			for i, item := range items {
				info := item.Info
				info.Language = firstNonEmpty(info.Language, cfg.TMDB.Language)
				info.Country = firstNonEmpty(info.Country, cfg.TMDB.Country)
				items[i] = core.NewPrefetchItem(info)
			}

			if workers <= 0 {
				workers = cfg.Prefetch.Workers
			}
			engine := core.NewPrefetchEngine(core.PrefetchConfig{
				Registry:    registry,
				WorkerCount: workers,
				Images:      !noImages,
				Logger:      logger,
			})

			var summary core.PrefetchSummary
			if interactive {
				model := progress.NewPrefetchProgressModel(cmd.Context(), engine, items, theme.Default())
				program := tea.NewProgram(model,
					tea.WithContext(cmd.Context()),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.ErrOrStderr()),
				)
				if _, err := program.Run(); err != nil {
					return fmt.Errorf("progress view: %w", err)
				}
				if err := model.Err(); err != nil {
					return err
				}
				if !model.Done() {
					return fmt.Errorf("prefetch interrupted after %d of %d items",
						model.Summary().ProcessedItems, model.Summary().TotalItems)
				}
				summary = engine.SummarySnapshot()
			} else {
				errOut := cmd.ErrOrStderr()
				lastPhase := -1
				for event := range engine.Start(cmd.Context(), items) {
					summary = event.Summary
					if event.Err != nil && !summary.Done {
						return event.Err
					}
					if summary.PhaseIndex != lastPhase && summary.PhaseName != "" {
						lastPhase = summary.PhaseIndex
						fmt.Fprintf(errOut, "%s...\n", summary.PhaseName)
					}
				}
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prefetched %d of %d items (%d images, %d failed)\n",
				summary.ProcessedItems-summary.ErrorCount, summary.TotalItems, summary.ImageCount, summary.ErrorCount)
			failures := engine.Failures()
			for _, f := range failures {
				fmt.Fprintf(out, "  %s: %v\n", f.Item.Key, f.Err)
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d items failed", len(failures))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent workers (default prefetch.workers)")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "Only warm metadata documents")
	cmd.Flags().BoolVar(&interactive, "tui", false, "Show live progress and retry failures interactively")
	return cmd
}

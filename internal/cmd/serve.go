package cmd

import (
	"github.com/Digital-Shane/moviedb/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(app *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metadata, images and search over HTTP",
		Long: `Serve the provider contract over HTTP until interrupted.

  GET /api/{kind}/{id}/metadata
  GET /api/{kind}/{id}/images?type=backdrop
  GET /api/{kind}/search?q=...&year=...
  GET /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if bind == "" {
				bind = cfg.Server.Bind
			}
			srv := server.New(server.Options{
				Registry: registry,
				Language: cfg.TMDB.Language,
				Country:  cfg.TMDB.Country,
				Logger:   logger,
			})
			return srv.ListenAndServe(cmd.Context(), bind)
		},
	}

	cmd.Flags().StringVarP(&bind, "bind", "b", "", "Listen address (default server.bind)")
	return cmd
}

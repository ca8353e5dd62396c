package cmd

import (
	"fmt"

	"github.com/Digital-Shane/moviedb/internal/media"
	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/spf13/cobra"
)

// identification is the identify output for one path.
type identification struct {
	Path     string             `json:"path"`
	Kind     string             `json:"kind"`
	Name     string             `json:"name"`
	Year     int                `json:"year,omitempty"`
	Season   int                `json:"season,omitempty"`
	Episode  int                `json:"episode,omitempty"`
	Metadata *provider.Metadata `json:"metadata,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// memoryCache shares resolved series between the paths of one run.
type memoryCache map[string]*provider.Metadata

func (c memoryCache) Get(key string) (*provider.Metadata, bool) {
	meta, ok := c[key]
	return meta, ok
}

func (c memoryCache) Set(key string, meta *provider.Metadata) {
	c[key] = meta
}

func newIdentifyCommand(app *commandContext) *cobra.Command {
	var language, country string

	cmd := &cobra.Command{
		Use:   "identify <path>...",
		Short: "Identify media files from their names",
		Long: `Parse release file or folder names into a title, year and season/episode
numbers, then look up the matching metadata.`,
		Example: `  moviedb identify The.Matrix.1999.1080p.mkv
  moviedb identify "tv/Breaking Bad (2008)/Season 01/S01E03.mkv"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := app.ensureRegistry(cmd)
			if err != nil {
				return err
			}

			cache := memoryCache{}
			results := make([]identification, 0, len(args))
			failed := 0
			for _, path := range args {
				parsed := media.ParsePath(path)
				res := identification{
					Path:    path,
					Kind:    string(parsed.Kind),
					Name:    parsed.Name,
					Year:    parsed.Year,
					Season:  parsed.Season,
					Episode: parsed.Episode,
				}

				if parsed.Name == "" {
					res.Error = "no title found in name"
					failed++
					results = append(results, res)
					continue
				}

				info := parsed.LookupInfo()
				info.Language = firstNonEmpty(language, cfg.TMDB.Language)
				info.Country = firstNonEmpty(country, cfg.TMDB.Country)

				meta, err := provider.FetchMetadataWithDependencies(cmd.Context(), registry, info, cache)
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				switch {
				case err != nil:
					res.Error = err.Error()
					failed++
				case meta == nil:
					res.Error = provider.ErrNotFound.Error()
					failed++
				default:
					res.Metadata = meta
				}
				results = append(results, res)
			}

			if err := writeJSON(cmd, results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d paths not identified", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "lang", "", "Metadata language (default tmdb.language)")
	cmd.Flags().StringVar(&country, "country", "", "Metadata country (default tmdb.country)")
	return cmd
}

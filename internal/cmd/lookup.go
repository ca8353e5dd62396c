package cmd

import (
	"fmt"
	"strings"

	"github.com/Digital-Shane/moviedb/internal/config"
	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/spf13/cobra"
)

// lookupFlags are the entity options shared by metadata and images.
type lookupFlags struct {
	season   int
	episode  int
	language string
	country  string
	force    bool
}

func (f *lookupFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.season, "season", -1, "Season number (season and episode kinds)")
	cmd.Flags().IntVar(&f.episode, "episode", -1, "Episode number (episode kind)")
	cmd.Flags().StringVar(&f.language, "lang", "", "Metadata language (default tmdb.language)")
	cmd.Flags().StringVar(&f.country, "country", "", "Metadata country (default tmdb.country)")
	cmd.Flags().BoolVar(&f.force, "force", false, "Refetch even when the cached document is fresh")
}

// info builds the entity description for kind and id.
func (f *lookupFlags) info(kindArg, id string, cfg *config.Config) (provider.LookupInfo, error) {
	kind, err := parseKind(kindArg)
	if err != nil {
		return provider.LookupInfo{}, err
	}

	info := provider.LookupByID(kind, id)
	info.Language = firstNonEmpty(f.language, cfg.TMDB.Language)
	info.Country = firstNonEmpty(f.country, cfg.TMDB.Country)
	info.Force = f.force

	if kind == provider.KindSeason || kind == provider.KindEpisode {
		if f.season < 0 {
			return info, fmt.Errorf("%s requires --season", kind)
		}
		info.SeasonNumber = f.season
	}
	if kind == provider.KindEpisode {
		if f.episode < 0 {
			return info, fmt.Errorf("episode requires --episode")
		}
		info.EpisodeNumber = f.episode
	}
	return info, nil
}

func parseKind(arg string) (provider.EntityKind, error) {
	kind, ok := provider.ParseKind(strings.ToLower(strings.TrimSpace(arg)))
	if !ok {
		return "", fmt.Errorf("unknown kind %q (movie, musicvideo, trailer, series, season, episode, person, collection)", arg)
	}
	return kind, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func newMetadataCommand(app *commandContext) *cobra.Command {
	var flags lookupFlags

	cmd := &cobra.Command{
		Use:   "metadata <kind> <id>",
		Short: "Print the metadata for an entity",
		Long: `Print the metadata for an entity as JSON.

Seasons and episodes take the series id together with --season and --episode.
Movies also accept IMDb ids (tt...).`,
		Example: `  moviedb metadata movie 603
  moviedb metadata episode 1396 --season 1 --episode 3 --lang de`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			info, err := flags.info(args[0], args[1], cfg)
			if err != nil {
				return err
			}
			registry, err := app.ensureRegistry(cmd)
			if err != nil {
				return err
			}

			meta, err := provider.FetchMetadataWithDependencies(cmd.Context(), registry, info, nil)
			if err != nil {
				return err
			}
			if meta == nil {
				return fmt.Errorf("%s %s: %w", info.Kind, args[1], provider.ErrNotFound)
			}
			return writeJSON(cmd, meta)
		},
	}

	flags.register(cmd)
	return cmd
}

func newImagesCommand(app *commandContext) *cobra.Command {
	var flags lookupFlags
	var imageType string

	cmd := &cobra.Command{
		Use:   "images <kind> <id>",
		Short: "List the images offered for an entity",
		Long: `List the images offered for an entity as JSON, in the order a library
should prefer them.`,
		Example: `  moviedb images movie 603 --type backdrop
  moviedb images season 1396 --season 2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var want provider.ImageType
			switch strings.ToLower(strings.TrimSpace(imageType)) {
			case "":
			case "primary":
				want = provider.ImageTypePrimary
			case "backdrop":
				want = provider.ImageTypeBackdrop
			default:
				return fmt.Errorf("unknown image type %q (primary, backdrop)", imageType)
			}

			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			info, err := flags.info(args[0], args[1], cfg)
			if err != nil {
				return err
			}
			registry, err := app.ensureRegistry(cmd)
			if err != nil {
				return err
			}

			images := []provider.RemoteImage{}
			for _, p := range registry.For(info) {
				found, err := p.FetchImages(cmd.Context(), info)
				if err != nil {
					return err
				}
				for _, img := range found {
					if want == "" || img.Type == want {
						images = append(images, img)
					}
				}
			}
			return writeJSON(cmd, images)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&imageType, "type", "", "Only list images of this type (primary, backdrop)")
	return cmd
}

func newSearchCommand(app *commandContext) *cobra.Command {
	var year int
	var language, country string
	var asTable bool

	cmd := &cobra.Command{
		Use:     "search <kind> <query>",
		Short:   "Search for identification candidates",
		Example: `  moviedb search movie "The Matrix" --year 1999`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
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

			info := provider.LookupInfo{
				Kind:     kind,
				Name:     strings.TrimSpace(strings.Join(args[1:], " ")),
				Year:     year,
				Language: firstNonEmpty(language, cfg.TMDB.Language),
				Country:  firstNonEmpty(country, cfg.TMDB.Country),
			}

			results := []provider.SearchResult{}
			for _, p := range registry.For(info) {
				if !p.Capabilities().Searchable {
					continue
				}
				found, err := p.Search(cmd.Context(), info)
				if err != nil {
					return err
				}
				results = append(results, found...)
			}
			if asTable {
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No results")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), searchTable(results))
				return nil
			}
			return writeJSON(cmd, results)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Release or first air year")
	cmd.Flags().StringVar(&language, "lang", "", "Search language (default tmdb.language)")
	cmd.Flags().StringVar(&country, "country", "", "Search country (default tmdb.country)")
	cmd.Flags().BoolVar(&asTable, "table", false, "Print a table instead of JSON")
	return cmd
}

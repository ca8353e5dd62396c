package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/Digital-Shane/moviedb/internal/media"
	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/pelletier/go-toml/v2"
)

// prefetchFile is the on-disk list of entities to warm:
//
//	language = "de"
//
//	[[item]]
//	kind = "movie"
//	tmdb = "603"
//
//	[[item]]
//	kind = "episode"
//	series = "Breaking Bad"
//	season = 1
//	episode = 3
//
//	[[item]]
//	file = "Better.Call.Saul.S02E05.mkv"
type prefetchFile struct {
	Language string             `toml:"language"`
	Country  string             `toml:"country"`
	Items    []prefetchFileItem `toml:"item"`
}

type prefetchFileItem struct {
	File       string `toml:"file"`
	Kind       string `toml:"kind"`
	Name       string `toml:"name"`
	Year       int    `toml:"year"`
	Tmdb       string `toml:"tmdb"`
	Imdb       string `toml:"imdb"`
	Collection string `toml:"collection"`
	Series     string `toml:"series"`
	SeriesTmdb string `toml:"series_tmdb"`
	Season     *int   `toml:"season"`
	Episode    *int   `toml:"episode"`
	Language   string `toml:"language"`
	Country    string `toml:"country"`
}

// LoadPrefetchFile reads a TOML prefetch list from path.
func LoadPrefetchFile(path string) ([]PrefetchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefetch file: %w", err)
	}
	return ParsePrefetchItems(data)
}

// ParsePrefetchItems decodes a TOML prefetch list. File-level language and
// country apply to items that do not set their own.
func ParsePrefetchItems(data []byte) ([]PrefetchItem, error) {
	var file prefetchFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prefetch file: %w", err)
	}

	items := make([]PrefetchItem, 0, len(file.Items))
	for i, raw := range file.Items {
		info, err := raw.lookupInfo()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		if info.Language == "" {
			info.Language = file.Language
		}
		if info.Country == "" {
			info.Country = file.Country
		}
		items = append(items, NewPrefetchItem(info))
	}
	return items, nil
}

// withFile fills fields the item leaves unset from its release file name.
func (r prefetchFileItem) withFile() prefetchFileItem {
	path := strings.TrimSpace(r.File)
	if path == "" {
		return r
	}

	parsed := media.ParsePath(path)
	if strings.TrimSpace(r.Kind) == "" {
		r.Kind = string(parsed.Kind)
	}
	if r.Year == 0 {
		r.Year = parsed.Year
	}
	switch parsed.Kind {
	case provider.KindSeason, provider.KindEpisode:
		if r.Series == "" {
			r.Series = parsed.Name
		}
		if r.Season == nil {
			r.Season = &parsed.Season
		}
		if r.Episode == nil && parsed.Kind == provider.KindEpisode {
			r.Episode = &parsed.Episode
		}
	default:
		if r.Name == "" {
			r.Name = parsed.Name
		}
	}
	return r
}

func (r prefetchFileItem) lookupInfo() (provider.LookupInfo, error) {
	r = r.withFile()

	kind, ok := provider.ParseKind(strings.ToLower(strings.TrimSpace(r.Kind)))
	if !ok {
		return provider.LookupInfo{}, fmt.Errorf("unknown kind %q", r.Kind)
	}

	info := provider.LookupInfo{
		Kind:       kind,
		Name:       strings.TrimSpace(r.Name),
		Year:       r.Year,
		SeriesName: strings.TrimSpace(r.Series),
		Language:   r.Language,
		Country:    r.Country,
	}

	ids := map[string]string{}
	for key, value := range map[string]string{
		provider.IDTmdb:           r.Tmdb,
		provider.IDImdb:           r.Imdb,
		provider.IDTmdbCollection: r.Collection,
	} {
		if v := strings.TrimSpace(value); v != "" {
			ids[key] = v
		}
	}
	if len(ids) > 0 {
		info.ProviderIDs = ids
	}
	if v := strings.TrimSpace(r.SeriesTmdb); v != "" {
		info.SeriesProviderIDs = map[string]string{provider.IDTmdb: v}
	}

	switch kind {
	case provider.KindSeason, provider.KindEpisode:
		if r.Season == nil {
			return info, fmt.Errorf("%s requires a season number", kind)
		}
		info.SeasonNumber = *r.Season
		if kind == provider.KindEpisode {
			if r.Episode == nil {
				return info, fmt.Errorf("episode requires an episode number")
			}
			info.EpisodeNumber = *r.Episode
		}
		if info.SeriesProviderIDs == nil && info.SeriesName == "" {
			return info, fmt.Errorf("%s requires series or series_tmdb", kind)
		}
	default:
		if info.ProviderIDs == nil && info.Name == "" {
			return info, fmt.Errorf("%s requires a name or an id", kind)
		}
	}
	return info, nil
}

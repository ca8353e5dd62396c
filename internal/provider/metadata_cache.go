package provider

import (
	"context"
	"fmt"
	"maps"
	"strings"
)

// MetadataCache provides safe access to metadata already gathered in memory.
type MetadataCache interface {
	Get(key string) (*Metadata, bool)
	Set(key string, meta *Metadata)
}

// GenerateMetadataKey creates a unique key for an entity lookup. Entities are
// keyed by their strongest identifier, falling back to name and year.
func GenerateMetadataKey(info LookupInfo) string {
	var key string
	switch info.Kind {
	case KindSeason:
		key = fmt.Sprintf("season:%s:%d", seriesIdentity(info), info.SeasonNumber)
	case KindEpisode:
		key = fmt.Sprintf("episode:%s:%d:%d", seriesIdentity(info), info.SeasonNumber, info.EpisodeNumber)
	case "":
		return ""
	default:
		id := identity(info.ProviderIDs)
		if id == "" {
			id = nameIdentity(info.Name, info.Year)
		}
		key = fmt.Sprintf("%s:%s", info.Kind, id)
	}

	if info.Language != "" {
		key += "@" + strings.ToLower(info.Language)
	}
	return key
}

func identity(ids map[string]string) string {
	for _, k := range []string{IDTmdb, IDTmdbCollection, IDImdb, IDTvdb} {
		if v := strings.TrimSpace(ids[k]); v != "" {
			return strings.ToLower(k) + "=" + v
		}
	}
	return ""
}

func seriesIdentity(info LookupInfo) string {
	if id := identity(info.SeriesProviderIDs); id != "" {
		return id
	}
	return nameIdentity(info.SeriesName, info.Year)
}

func nameIdentity(name string, year int) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(strings.TrimSpace(name)), year)
}

// FetchMetadataWithDependencies fetches metadata with proper dependency resolution.
// Seasons and episodes without a parent series ID resolve the series by name
// first; that lookup goes through cache so siblings share it.
func FetchMetadataWithDependencies(ctx context.Context, registry *Registry, info LookupInfo, cache MetadataCache) (*Metadata, error) {
	if registry == nil {
		return nil, nil
	}

	key := GenerateMetadataKey(info)
	if cache != nil && key != "" {
		if meta, ok := cache.Get(key); ok {
			return meta, nil
		}
	}

	if (info.Kind == KindSeason || info.Kind == KindEpisode) && info.SeriesProviderID(IDTmdb) == "" {
		if strings.TrimSpace(info.SeriesName) == "" {
			return nil, nil
		}
		series, err := FetchMetadataWithDependencies(ctx, registry, LookupInfo{
			Kind:     KindSeries,
			Name:     info.SeriesName,
			Year:     info.Year,
			Language: info.Language,
			Country:  info.Country,
			Force:    info.Force,
		}, cache)
		if err != nil {
			return nil, fmt.Errorf("resolve series %q: %w", info.SeriesName, err)
		}
		if series == nil || series.ProviderIDs[IDTmdb] == "" {
			return nil, nil
		}

		ids := maps.Clone(info.SeriesProviderIDs)
		if ids == nil {
			ids = map[string]string{}
		}
		maps.Copy(ids, series.ProviderIDs)
		info.SeriesProviderIDs = ids
	}

	var firstErr error
	for _, p := range registry.ForMetadata(info) {
		meta, err := p.FetchMetadata(ctx, info)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if meta == nil {
			continue
		}
		if cache != nil && key != "" {
			cache.Set(key, meta)
		}
		return meta, nil
	}
	return nil, firstErr
}

package provider

import "strings"

// LookupByID describes the entity of kind known by id. Seasons and episodes
// take the parent series identifier; movie-shaped kinds accept IMDb ids.
func LookupByID(kind EntityKind, id string) LookupInfo {
	id = strings.TrimSpace(id)
	info := LookupInfo{Kind: kind}
	if id == "" {
		return info
	}

	switch kind {
	case KindSeason, KindEpisode:
		info.SeriesProviderIDs = map[string]string{IDTmdb: id}
	case KindCollection:
		info.ProviderIDs = map[string]string{IDTmdbCollection: id}
	default:
		key := IDTmdb
		if strings.HasPrefix(strings.ToLower(id), "tt") {
			key = IDImdb
		}
		info.ProviderIDs = map[string]string{key: id}
	}
	return info
}

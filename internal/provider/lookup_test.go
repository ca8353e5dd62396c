package provider

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookupByID(t *testing.T) {
	tests := []struct {
		name string
		kind EntityKind
		id   string
		want LookupInfo
	}{
		{
			name: "movie tmdb id",
			kind: KindMovie,
			id:   "603",
			want: LookupInfo{Kind: KindMovie, ProviderIDs: map[string]string{IDTmdb: "603"}},
		},
		{
			name: "movie imdb id",
			kind: KindMovie,
			id:   "tt0133093",
			want: LookupInfo{Kind: KindMovie, ProviderIDs: map[string]string{IDImdb: "tt0133093"}},
		},
		{
			name: "collection",
			kind: KindCollection,
			id:   " 2344 ",
			want: LookupInfo{Kind: KindCollection, ProviderIDs: map[string]string{IDTmdbCollection: "2344"}},
		},
		{
			name: "episode uses series id",
			kind: KindEpisode,
			id:   "1396",
			want: LookupInfo{Kind: KindEpisode, SeriesProviderIDs: map[string]string{IDTmdb: "1396"}},
		},
		{
			name: "empty id",
			kind: KindPerson,
			id:   "",
			want: LookupInfo{Kind: KindPerson},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LookupByID(tt.kind, tt.id)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("LookupByID() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

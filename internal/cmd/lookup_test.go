package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Digital-Shane/moviedb/internal/config"
	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/google/go-cmp/cmp"
)

func TestLookupFlagsInfo(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		name    string
		flags   lookupFlags
		kind    string
		id      string
		want    provider.LookupInfo
		wantErr string
	}{
		{
			name:  "movie uses configured language",
			flags: lookupFlags{season: -1, episode: -1},
			kind:  "movie",
			id:    "603",
			want: provider.LookupInfo{
				Kind:        provider.KindMovie,
				ProviderIDs: map[string]string{provider.IDTmdb: "603"},
				Language:    "en",
				Country:     "US",
			},
		},
		{
			name:  "episode with overrides",
			flags: lookupFlags{season: 1, episode: 3, language: "de", country: "DE", force: true},
			kind:  "Episode",
			id:    "1396",
			want: provider.LookupInfo{
				Kind:              provider.KindEpisode,
				SeriesProviderIDs: map[string]string{provider.IDTmdb: "1396"},
				SeasonNumber:      1,
				EpisodeNumber:     3,
				Language:          "de",
				Country:           "DE",
				Force:             true,
			},
		},
		{
			name:  "season zero is valid",
			flags: lookupFlags{season: 0, episode: -1},
			kind:  "season",
			id:    "1396",
			want: provider.LookupInfo{
				Kind:              provider.KindSeason,
				SeriesProviderIDs: map[string]string{provider.IDTmdb: "1396"},
				Language:          "en",
				Country:           "US",
			},
		},
		{
			name:    "season missing number",
			flags:   lookupFlags{season: -1, episode: -1},
			kind:    "season",
			id:      "1396",
			wantErr: "requires --season",
		},
		{
			name:    "episode missing number",
			flags:   lookupFlags{season: 1, episode: -1},
			kind:    "episode",
			id:      "1396",
			wantErr: "requires --episode",
		},
		{
			name:    "unknown kind",
			flags:   lookupFlags{season: -1, episode: -1},
			kind:    "album",
			id:      "1",
			wantErr: "unknown kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.info(tt.kind, tt.id, cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("info() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("info() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("info() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMetadataCommand(t *testing.T) {
	api := newFakeTMDB(map[string]string{"/3/movie/603": matrixBody})
	configPath := writeTestConfig(t, t.TempDir())

	out, _, err := runCLI(t, configPath, api.client(), "metadata", "movie", "603")
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}

	var meta provider.Metadata
	if err := json.Unmarshal([]byte(out), &meta); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if meta.Title != "The Matrix" || meta.ProductionYear != 1999 {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.ProviderIDs[provider.IDImdb] != "tt0133093" {
		t.Errorf("ProviderIDs = %v", meta.ProviderIDs)
	}
}

func TestMetadataCommandNotFound(t *testing.T) {
	api := newFakeTMDB(nil)
	configPath := writeTestConfig(t, t.TempDir())

	_, _, err := runCLI(t, configPath, api.client(), "metadata", "movie", "1")
	if !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("metadata error = %v, want ErrNotFound", err)
	}
}

func TestMetadataCommandRequiresAPIKey(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	configPath := writeTestConfig(t, t.TempDir())
	// overwrite with a config lacking the key
	if err := config.DefaultConfig().SaveFile(configPath); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	_, _, err := runCLI(t, configPath, nil, "metadata", "movie", "603")
	if err == nil || !strings.Contains(err.Error(), "api_key is required") {
		t.Fatalf("metadata error = %v, want missing api key", err)
	}
}

func TestImagesCommand(t *testing.T) {
	api := newFakeTMDB(map[string]string{"/3/movie/603": matrixBody})
	configPath := writeTestConfig(t, t.TempDir())

	out, _, err := runCLI(t, configPath, api.client(), "images", "movie", "603", "--type", "backdrop")
	if err != nil {
		t.Fatalf("images: %v", err)
	}

	var images []provider.RemoteImage
	if err := json.Unmarshal([]byte(out), &images); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	var urls []string
	for _, img := range images {
		if img.Type != provider.ImageTypeBackdrop {
			t.Errorf("image type = %s, want Backdrop", img.Type)
		}
		urls = append(urls, img.URL)
	}
	want := []string{
		"https://image.tmdb.test/t/p/original/bd-high.jpg",
		"https://image.tmdb.test/t/p/original/bd-low.jpg",
	}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("backdrop urls mismatch (-want +got):\n%s", diff)
	}
}

func TestImagesCommandUnknownType(t *testing.T) {
	configPath := writeTestConfig(t, t.TempDir())

	_, _, err := runCLI(t, configPath, nil, "images", "movie", "603", "--type", "logo")
	if err == nil || !strings.Contains(err.Error(), "unknown image type") {
		t.Fatalf("images error = %v, want unknown image type", err)
	}
}

func TestSearchCommand(t *testing.T) {
	api := newFakeTMDB(map[string]string{
		"/3/search/person": `{"results": [{"id": 287, "name": "Brad Pitt", "profile_path": "/brad.jpg"}]}`,
	})
	configPath := writeTestConfig(t, t.TempDir())

	out, _, err := runCLI(t, configPath, api.client(), "search", "person", "Brad", "Pitt")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	var results []provider.SearchResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(results) != 1 || results[0].Name != "Brad Pitt" || results[0].ProviderIDs[provider.IDTmdb] != "287" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchCommandTable(t *testing.T) {
	api := newFakeTMDB(map[string]string{
		"/3/search/collection": `{"results": [{"id": 2344, "name": "The Matrix Collection"}]}`,
	})
	configPath := writeTestConfig(t, t.TempDir())

	out, _, err := runCLI(t, configPath, api.client(), "search", "collection", "matrix", "--table")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, want := range []string{"Name", "The Matrix Collection", "Tmdb=2344"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatIDs(t *testing.T) {
	got := formatIDs(map[string]string{provider.IDTmdb: "603", provider.IDImdb: "tt0133093"})
	if want := "Imdb=tt0133093 Tmdb=603"; got != want {
		t.Errorf("formatIDs() = %q, want %q", got, want)
	}
}

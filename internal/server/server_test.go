package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Digital-Shane/moviedb/internal/logging"
	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/Digital-Shane/moviedb/internal/server"
	"github.com/google/go-cmp/cmp"
)

type fakeProvider struct {
	kind       provider.EntityKind
	searchable bool

	imagesFunc   func(context.Context, provider.LookupInfo) ([]provider.RemoteImage, error)
	metadataFunc func(context.Context, provider.LookupInfo) (*provider.Metadata, error)
	searchFunc   func(context.Context, provider.LookupInfo) ([]provider.SearchResult, error)
}

func (f *fakeProvider) Name() string             { return "fake" }
func (f *fakeProvider) Kind() provider.EntityKind { return f.kind }
func (f *fakeProvider) Order() int               { return 0 }
func (f *fakeProvider) Capabilities() provider.ProviderCapabilities {
	return provider.ProviderCapabilities{
		Kinds:      []provider.EntityKind{f.kind},
		ImageTypes: []provider.ImageType{provider.ImageTypePrimary, provider.ImageTypeBackdrop},
		Searchable: f.searchable,
	}
}
func (f *fakeProvider) Supports(info provider.LookupInfo) bool { return info.Kind == f.kind }
func (f *fakeProvider) SupportedImageTypes(provider.LookupInfo) []provider.ImageType {
	return f.Capabilities().ImageTypes
}
func (f *fakeProvider) FetchImages(ctx context.Context, info provider.LookupInfo) ([]provider.RemoteImage, error) {
	if f.imagesFunc != nil {
		return f.imagesFunc(ctx, info)
	}
	return nil, nil
}
func (f *fakeProvider) FetchMetadata(ctx context.Context, info provider.LookupInfo) (*provider.Metadata, error) {
	if f.metadataFunc != nil {
		return f.metadataFunc(ctx, info)
	}
	return nil, nil
}
func (f *fakeProvider) Search(ctx context.Context, info provider.LookupInfo) ([]provider.SearchResult, error) {
	if f.searchFunc != nil {
		return f.searchFunc(ctx, info)
	}
	return nil, nil
}

func newTestServer(t *testing.T, providers ...*fakeProvider) http.Handler {
	t.Helper()
	registry := provider.NewRegistry()
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	return server.New(server.Options{
		Registry: registry,
		Language: "en",
		Logger:   logging.NewNop(),
	}).Handler()
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	rr := serve(newTestServer(t), "/healthz")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("X-Request-ID"); got == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestImages(t *testing.T) {
	var seen provider.LookupInfo
	movies := &fakeProvider{
		kind: provider.KindMovie,
		imagesFunc: func(_ context.Context, info provider.LookupInfo) ([]provider.RemoteImage, error) {
			seen = info
			return []provider.RemoteImage{
				{URL: "https://img/p.jpg", Type: provider.ImageTypePrimary},
				{URL: "https://img/b.jpg", Type: provider.ImageTypeBackdrop},
			}, nil
		},
	}
	h := newTestServer(t, movies)

	t.Run("all types", func(t *testing.T) {
		rr := serve(h, "/api/movie/603/images?lang=de&country=DE&force=true")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		images := decode[[]provider.RemoteImage](t, rr)
		if len(images) != 2 {
			t.Fatalf("got %d images, want 2", len(images))
		}

		want := provider.LookupInfo{
			Kind:        provider.KindMovie,
			ProviderIDs: map[string]string{provider.IDTmdb: "603"},
			Language:    "de",
			Country:     "DE",
			Force:       true,
		}
		if diff := cmp.Diff(want, seen); diff != "" {
			t.Errorf("lookup info mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("type filter", func(t *testing.T) {
		rr := serve(h, "/api/movie/603/images?type=backdrop")
		images := decode[[]provider.RemoteImage](t, rr)
		if len(images) != 1 || images[0].Type != provider.ImageTypeBackdrop {
			t.Errorf("images = %+v, want one backdrop", images)
		}
	})

	t.Run("imdb id and default language", func(t *testing.T) {
		serve(h, "/api/film/tt0133093/images")
		if got := seen.ProviderID(provider.IDImdb); got != "tt0133093" {
			t.Errorf("Imdb id = %q, want tt0133093", got)
		}
		if seen.Language != "en" {
			t.Errorf("Language = %q, want en", seen.Language)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		rr := serve(h, "/api/movie/603/images?type=logo")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("no providers yields empty list", func(t *testing.T) {
		rr := serve(h, "/api/person/31/images")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
			t.Errorf("body = %s, want []", body)
		}
	})
}

func TestImagesEpisodeParameters(t *testing.T) {
	var seen provider.LookupInfo
	episodes := &fakeProvider{
		kind: provider.KindEpisode,
		imagesFunc: func(_ context.Context, info provider.LookupInfo) ([]provider.RemoteImage, error) {
			seen = info
			return nil, nil
		},
	}
	h := newTestServer(t, episodes)

	rr := serve(h, "/api/episode/1396/images?season=2&episode=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if got := seen.SeriesProviderID(provider.IDTmdb); got != "1396" {
		t.Errorf("series id = %q, want 1396", got)
	}
	if seen.SeasonNumber != 2 || seen.EpisodeNumber != 5 {
		t.Errorf("season/episode = %d/%d, want 2/5", seen.SeasonNumber, seen.EpisodeNumber)
	}

	tests := map[string]string{
		"missing season":  "/api/episode/1396/images?episode=5",
		"missing episode": "/api/episode/1396/images?season=2",
		"invalid season":  "/api/season/1396/images?season=two",
		"negative season": "/api/season/1396/images?season=-1",
		"unknown kind":    "/api/album/1/images",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			rr := serve(h, target)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
			if got := decode[map[string]string](t, rr)["error"]; got == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestMetadata(t *testing.T) {
	movies := &fakeProvider{
		kind: provider.KindMovie,
		metadataFunc: func(_ context.Context, info provider.LookupInfo) (*provider.Metadata, error) {
			if info.ProviderID(provider.IDTmdb) != "603" {
				return nil, nil
			}
			return &provider.Metadata{
				Kind:        provider.KindMovie,
				Title:       "The Matrix",
				ProviderIDs: map[string]string{provider.IDTmdb: "603"},
			}, nil
		},
	}
	h := newTestServer(t, movies)

	rr := serve(h, "/api/movie/603/metadata")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if got := decode[provider.Metadata](t, rr).Title; got != "The Matrix" {
		t.Errorf("Title = %q, want The Matrix", got)
	}

	rr = serve(h, "/api/movie/1/metadata")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "{}" {
		t.Errorf("body = %s, want {}", body)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &provider.ProviderError{Provider: "fake", Code: provider.CodeNotFound, Message: "gone"}, http.StatusNotFound},
		{"transient", &provider.ProviderError{Provider: "fake", Code: provider.CodeTransient, Message: "503"}, http.StatusBadGateway},
		{"rate limited", &provider.ProviderError{Provider: "fake", Code: provider.CodeRateLimited, Message: "429"}, http.StatusBadGateway},
		{"malformed", fmt.Errorf("decode: %w", provider.ErrMalformedResponse), http.StatusBadGateway},
		{"missing id", provider.ErrMissingIdentifier, http.StatusBadRequest},
		{"canceled", context.Canceled, 499},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movies := &fakeProvider{
				kind: provider.KindMovie,
				imagesFunc: func(context.Context, provider.LookupInfo) ([]provider.RemoteImage, error) {
					return nil, tt.err
				},
			}
			rr := serve(newTestServer(t, movies), "/api/movie/603/images")
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if got := decode[map[string]string](t, rr)["error"]; got == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestSearch(t *testing.T) {
	var seen provider.LookupInfo
	series := &fakeProvider{
		kind:       provider.KindSeries,
		searchable: true,
		searchFunc: func(_ context.Context, info provider.LookupInfo) ([]provider.SearchResult, error) {
			seen = info
			return []provider.SearchResult{{
				Name:               "Breaking Bad",
				ProductionYear:     2008,
				ProviderIDs:        map[string]string{provider.IDTmdb: "1396"},
				SearchProviderName: "TheMovieDb",
			}}, nil
		},
	}
	h := newTestServer(t, series)

	rr := serve(h, "/api/tv/search?q=breaking+bad&year=2008&lang=es&country=MX")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	results := decode[[]provider.SearchResult](t, rr)
	if len(results) != 1 || results[0].ProviderIDs[provider.IDTmdb] != "1396" {
		t.Errorf("results = %+v", results)
	}

	want := provider.LookupInfo{
		Kind:     provider.KindSeries,
		Name:     "breaking bad",
		Year:     2008,
		Language: "es",
		Country:  "MX",
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("lookup info mismatch (-want +got):\n%s", diff)
	}

	tests := map[string]string{
		"missing query": "/api/series/search",
		"invalid year":  "/api/series/search?q=x&year=soon",
		"unknown kind":  "/api/album/search?q=x",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			if rr := serve(h, target); rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestSearchSkipsUnsearchable(t *testing.T) {
	called := false
	seasons := &fakeProvider{
		kind: provider.KindSeason,
		searchFunc: func(context.Context, provider.LookupInfo) ([]provider.SearchResult, error) {
			called = true
			return nil, nil
		},
	}

	rr := serve(newTestServer(t, seasons), "/api/season/search?q=one")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if called {
		t.Error("Search called on a provider without search capability")
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/movie/603/images", nil)
	rr := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

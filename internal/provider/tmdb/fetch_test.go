package tmdb

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/Digital-Shane/moviedb/internal/provider"
)

const matrixBody = `{
	"id": 603,
	"imdb_id": "tt0133093",
	"title": "The Matrix",
	"original_title": "The Matrix",
	"overview": "A computer hacker learns about the true nature of reality.",
	"release_date": "1999-03-30",
	"vote_average": 8.2,
	"vote_count": 24000,
	"runtime": 136,
	"genres": [{"id": 28, "name": "Action"}, {"id": 878, "name": "Science Fiction"}],
	"images": {
		"posters": [{"file_path": "/poster.jpg", "width": 1000, "height": 1500, "iso_639_1": "en", "vote_average": 5.5, "vote_count": 10}],
		"backdrops": [
			{"file_path": "/bd-low.jpg", "width": 1920, "height": 1080, "iso_639_1": null, "vote_average": 5.1, "vote_count": 3},
			{"file_path": "/bd-high.jpg", "width": 3840, "height": 2160, "iso_639_1": "en", "vote_average": 6.4, "vote_count": 8}
		]
	}
}`

func TestEnsureDocumentFetchesAndPersists(t *testing.T) {
	api := newFakeAPI()
	api.handle("/3/movie/603", matrixBody)
	svc := newTestService(t, api, nil)
	ctx := context.Background()
	ref := DocumentRef{Kind: provider.KindMovie, ID: "603"}

	doc, err := svc.EnsureDocument(ctx, ref, FetchOptions{Language: "en", Country: "US"})
	if err != nil {
		t.Fatalf("EnsureDocument() error = %v", err)
	}
	if doc.Title != "The Matrix" {
		t.Errorf("Title = %q, want The Matrix", doc.Title)
	}
	if len(doc.Images.Backdrops) != 2 || doc.Images.Stills == nil {
		t.Errorf("Images = %+v, want 2 backdrops and non-nil lists", doc.Images)
	}

	reqs := api.requestsTo("/3/movie/603")
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	req := reqs[0]
	q := req.URL.Query()
	checks := map[string]string{
		"api_key":                "test-key",
		"language":               "en",
		"include_image_language": "en,null",
		"append_to_response":     "casts,releases,images,keywords,trailers",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}
	if got := req.Header.Get("Accept"); got != "application/json,image/*" {
		t.Errorf("Accept = %q", got)
	}
	if got := req.Header.Get("User-Agent"); got != "moviedb/test" {
		t.Errorf("User-Agent = %q", got)
	}
	if req.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}

	path, _ := svc.Cache().Path(ref, "en")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("document not persisted: %v", err)
	}

	// second call is served from disk
	if _, err := svc.EnsureDocument(ctx, ref, FetchOptions{Language: "en", Country: "US"}); err != nil {
		t.Fatalf("EnsureDocument() second call error = %v", err)
	}
	if n := len(api.requestsTo("/3/movie/603")); n != 1 {
		t.Errorf("second call made %d requests total, want 1", n)
	}

	// Force always refetches
	if _, err := svc.EnsureDocument(ctx, ref, FetchOptions{Language: "en", Force: true}); err != nil {
		t.Fatalf("EnsureDocument(Force) error = %v", err)
	}
	if n := len(api.requestsTo("/3/movie/603")); n != 2 {
		t.Errorf("forced call made %d requests total, want 2", n)
	}
}

func TestFetchDocumentEnglishFallback(t *testing.T) {
	api := newFakeAPI()
	api.handleFunc("/3/movie/603", func(req *http.Request) *http.Response {
		if req.URL.Query().Get("language") == "en" {
			return jsonResponse(http.StatusOK, `{"id": 603, "title": "The Matrix", "overview": "English overview", "tagline": "Welcome to the Real World."}`)
		}
		return jsonResponse(http.StatusOK, `{"id": 603, "title": "Matrix", "overview": "", "tagline": "Willkommen"}`)
	})
	svc := newTestService(t, api, nil)

	doc, err := svc.FetchDocument(context.Background(), DocumentRef{Kind: provider.KindMovie, ID: "603"}, FetchOptions{Language: "de", Country: "DE"})
	if err != nil {
		t.Fatalf("FetchDocument() error = %v", err)
	}

	if doc.Overview != "English overview" {
		t.Errorf("Overview = %q, want English overview", doc.Overview)
	}
	if doc.Title != "Matrix" || doc.Tagline != "Willkommen" {
		t.Errorf("fallback changed more than the overview: title %q tagline %q", doc.Title, doc.Tagline)
	}

	reqs := api.requestsTo("/3/movie/603")
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}
	first, second := reqs[0].URL.Query(), reqs[1].URL.Query()
	if first.Get("language") != "de" || second.Get("language") != "en" {
		t.Errorf("languages = %q then %q, want de then en", first.Get("language"), second.Get("language"))
	}
	if got := second.Get("include_image_language"); got != "de,null,en" {
		t.Errorf("fallback include_image_language = %q, want de,null,en", got)
	}

	// the cached copy carries the filled overview
	cached, ok, err := svc.Cache().Load(context.Background(), DocumentRef{Kind: provider.KindMovie, ID: "603"}, "de")
	if err != nil || !ok {
		t.Fatalf("Load() = (%v, %v), want hit", ok, err)
	}
	if cached.Overview != "English overview" {
		t.Errorf("cached Overview = %q", cached.Overview)
	}
}

func TestFetchDocumentFallbackSkipped(t *testing.T) {
	tests := []struct {
		name     string
		language string
		body     string
	}{
		{name: "english request", language: "en", body: `{"id": 1, "title": "X", "overview": ""}`},
		{name: "english upper", language: "EN", body: `{"id": 1, "title": "X", "overview": ""}`},
		{name: "no language", language: "", body: `{"id": 1, "title": "X", "overview": ""}`},
		{name: "localized overview present", language: "fr", body: `{"id": 1, "title": "X", "overview": "Résumé"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.handle("/3/movie/1", tt.body)
			svc := newTestService(t, api, nil)

			if _, err := svc.FetchDocument(context.Background(), DocumentRef{Kind: provider.KindMovie, ID: "1"}, FetchOptions{Language: tt.language}); err != nil {
				t.Fatalf("FetchDocument() error = %v", err)
			}
			if n := len(api.requestsTo("/3/movie/1")); n != 1 {
				t.Errorf("got %d requests, want 1", n)
			}
		})
	}
}

func TestFetchDocumentFallbackNotFound(t *testing.T) {
	api := newFakeAPI()
	api.handleFunc("/3/tv/1399", func(req *http.Request) *http.Response {
		if req.URL.Query().Get("language") == "en" {
			return jsonResponse(http.StatusNotFound, `{"status_code": 34}`)
		}
		return jsonResponse(http.StatusOK, `{"id": 1399, "name": "Juego de tronos", "overview": ""}`)
	})
	svc := newTestService(t, api, nil)

	doc, err := svc.FetchDocument(context.Background(), DocumentRef{Kind: provider.KindSeries, ID: "1399"}, FetchOptions{Language: "es"})
	if err != nil {
		t.Fatalf("FetchDocument() error = %v", err)
	}
	if doc.Name != "Juego de tronos" || doc.Overview != "" {
		t.Errorf("doc = %q/%q, want localized document unchanged", doc.Name, doc.Overview)
	}
}

func TestEnsureDocumentPersonIgnoresLanguage(t *testing.T) {
	api := newFakeAPI()
	api.handle("/3/person/287", `{"id": 287, "name": "Brad Pitt", "biography": "An American actor."}`)
	svc := newTestService(t, api, nil)
	ref := DocumentRef{Kind: provider.KindPerson, ID: "287"}

	for _, lang := range []string{"de", "fr"} {
		if _, err := svc.EnsureDocument(context.Background(), ref, FetchOptions{Language: lang}); err != nil {
			t.Fatalf("EnsureDocument(%s) error = %v", lang, err)
		}
	}

	reqs := api.requestsTo("/3/person/287")
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1 shared across languages", len(reqs))
	}
	if q := reqs[0].URL.Query(); q.Has("language") || q.Has("include_image_language") {
		t.Errorf("person request should not be language scoped: %s", reqs[0].URL.RawQuery)
	}
	path, _ := svc.Cache().Path(ref, "")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("person not cached at %s: %v", path, err)
	}
}

func TestFetchDocumentForeignIDMemoized(t *testing.T) {
	api := newFakeAPI()
	api.handle("/3/movie/tt0133093", matrixBody)
	svc := newTestService(t, api, nil)
	ref := DocumentRef{Kind: provider.KindMovie, ID: "tt0133093"}

	for i := 0; i < 2; i++ {
		doc, err := svc.EnsureDocument(context.Background(), ref, FetchOptions{Language: "en"})
		if err != nil {
			t.Fatalf("EnsureDocument() error = %v", err)
		}
		if doc.ID != 603 {
			t.Errorf("ID = %d, want 603", doc.ID)
		}
	}
	if n := len(api.requestsTo("/3/movie/tt0133093")); n != 1 {
		t.Errorf("got %d requests, want 1 (second lookup served from memory)", n)
	}

	if _, err := svc.EnsureDocument(context.Background(), ref, FetchOptions{Language: "de"}); err != nil {
		t.Fatalf("EnsureDocument(de) error = %v", err)
	}
	if _, err := svc.EnsureDocument(context.Background(), ref, FetchOptions{Language: "en", Force: true}); err != nil {
		t.Fatalf("EnsureDocument(force) error = %v", err)
	}
	if n := len(api.requestsTo("/3/movie/tt0133093")); n != 3 {
		t.Errorf("got %d requests, want 3 (new language and forced refetch)", n)
	}

	path, _ := svc.Cache().Path(ref, "en")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("IMDb keyed document should not be written, stat err = %v", err)
	}
}

func TestEnsureDocumentNormalizesLanguageOnce(t *testing.T) {
	tests := []struct {
		name     string
		first    FetchOptions
		second   FetchOptions
		wantFile string
	}{
		{
			name:     "region case",
			first:    FetchOptions{Language: "fr-ca"},
			second:   FetchOptions{Language: "fr-CA"},
			wantFile: "all-fr-CA.json",
		},
		{
			name:     "spanish for mexico",
			first:    FetchOptions{Language: "es", Country: "MX"},
			second:   FetchOptions{Language: "es-MX", Country: "MX"},
			wantFile: "all-es-MX.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.handle("/3/movie/603", matrixBody)
			svc := newTestService(t, api, nil)
			ref := DocumentRef{Kind: provider.KindMovie, ID: "603"}

			for _, opts := range []FetchOptions{tt.first, tt.second} {
				if _, err := svc.EnsureDocument(context.Background(), ref, opts); err != nil {
					t.Fatalf("EnsureDocument(%+v) error = %v", opts, err)
				}
			}

			if n := len(api.requestsTo("/3/movie/603")); n != 1 {
				t.Errorf("got %d requests, want 1", n)
			}
			path, err := svc.Cache().Path(ref, NormalizeLanguage(tt.first.Language, tt.first.Country))
			if err != nil {
				t.Fatalf("Path() error = %v", err)
			}
			if filepath.Base(path) != tt.wantFile {
				t.Errorf("cache file = %s, want %s", filepath.Base(path), tt.wantFile)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("cache file missing: %v", err)
			}
		})
	}
}

func TestFetchDocumentErrors(t *testing.T) {
	tests := []struct {
		name     string
		response func() *http.Response
		wantErr  error
		wantCode string
	}{
		{
			name:     "not found",
			response: func() *http.Response { return jsonResponse(http.StatusNotFound, `{"status_code": 34}`) },
			wantErr:  provider.ErrNotFound,
			wantCode: provider.CodeNotFound,
		},
		{
			name:     "server error",
			response: func() *http.Response { return jsonResponse(http.StatusInternalServerError, `oops`) },
			wantErr:  provider.ErrTransient,
			wantCode: provider.CodeTransient,
		},
		{
			name:     "unauthorized",
			response: func() *http.Response { return jsonResponse(http.StatusUnauthorized, `{"status_code": 7}`) },
			wantErr:  provider.ErrTransient,
			wantCode: provider.CodeAuthFailed,
		},
		{
			name: "rate limited",
			response: func() *http.Response {
				resp := jsonResponse(http.StatusTooManyRequests, `{"status_code": 25}`)
				resp.Header.Set("Retry-After", "3")
				return resp
			},
			wantErr:  provider.ErrTransient,
			wantCode: provider.CodeRateLimited,
		},
		{
			name:     "malformed body",
			response: func() *http.Response { return jsonResponse(http.StatusOK, `{"id": 603, "title": `) },
			wantErr:  provider.ErrMalformedResponse,
			wantCode: provider.CodeMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.handleFunc("/3/movie/603", func(*http.Request) *http.Response { return tt.response() })
			svc := newTestService(t, api, nil)
			ref := DocumentRef{Kind: provider.KindMovie, ID: "603"}

			_, err := svc.EnsureDocument(context.Background(), ref, FetchOptions{Language: "en"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("EnsureDocument() error = %v, want %v", err, tt.wantErr)
			}
			var perr *provider.ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("error %v is not a ProviderError", err)
			}
			if perr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", perr.Code, tt.wantCode)
			}
			if perr.Code == provider.CodeRateLimited && perr.RetryAfter != 3 {
				t.Errorf("RetryAfter = %d, want 3", perr.RetryAfter)
			}

			path, _ := svc.Cache().Path(ref, "en")
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("failed fetch should not write a cache file, stat err = %v", err)
			}
		})
	}
}

func TestFetchDocumentTransportError(t *testing.T) {
	transport := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset by peer")
	})
	svc := newTestService(t, transport, nil)

	_, err := svc.FetchDocument(context.Background(), DocumentRef{Kind: provider.KindMovie, ID: "603"}, FetchOptions{})
	if !errors.Is(err, provider.ErrTransient) {
		t.Errorf("FetchDocument() error = %v, want ErrTransient", err)
	}
}

func TestFetchDocumentCancelled(t *testing.T) {
	api := newFakeAPI()
	api.handle("/3/movie/603", matrixBody)
	svc := newTestService(t, api, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.EnsureDocument(ctx, DocumentRef{Kind: provider.KindMovie, ID: "603"}, FetchOptions{Language: "en"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("EnsureDocument() error = %v, want context.Canceled", err)
	}
	if n := len(api.requestsTo("/3/movie/603")); n != 0 {
		t.Errorf("cancelled call made %d requests, want 0", n)
	}
}

func TestEnsureDocumentMissingIdentifier(t *testing.T) {
	tests := []struct {
		name string
		ref  DocumentRef
	}{
		{name: "empty id", ref: DocumentRef{Kind: provider.KindMovie}},
		{name: "blank id", ref: DocumentRef{Kind: provider.KindSeries, ID: "  "}},
		{name: "path characters", ref: DocumentRef{Kind: provider.KindMovie, ID: "../603"}},
		{name: "negative season", ref: DocumentRef{Kind: provider.KindSeason, ID: "1399", Season: -1}},
		{name: "negative episode", ref: DocumentRef{Kind: provider.KindEpisode, ID: "1399", Season: 1, Episode: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			svc := newTestService(t, api, nil)

			_, err := svc.EnsureDocument(context.Background(), tt.ref, FetchOptions{Language: "en"})
			if !errors.Is(err, provider.ErrMissingIdentifier) {
				t.Errorf("EnsureDocument() error = %v, want ErrMissingIdentifier", err)
			}
			if len(api.requests) != 0 {
				t.Errorf("made %d requests, want 0", len(api.requests))
			}
		})
	}
}

func TestEnsureDocumentUnsupportedKind(t *testing.T) {
	svc := newTestService(t, newFakeAPI(), nil)
	if _, err := svc.EnsureDocument(context.Background(), DocumentRef{Kind: "podcast", ID: "1"}, FetchOptions{}); err == nil {
		t.Error("EnsureDocument() with unsupported kind should fail")
	}
}

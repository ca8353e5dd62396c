package tmdb

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/Digital-Shane/moviedb/internal/logging"
	gotmdb "github.com/ryanbradynd05/go-tmdb"
)

const (
	testBaseURL  = "https://tmdb.test/3"
	testImageURL = "https://image.tmdb.test/t/p/original"
	settingsBody = `{"images":{"base_url":"http://image.tmdb.test/t/p/","secure_base_url":"https://image.tmdb.test/t/p/","poster_sizes":["w92","original"]}}`
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

// fakeAPI answers requests by URL path and records every request it sees.
type fakeAPI struct {
	mu       sync.Mutex
	routes   map[string]func(*http.Request) *http.Response
	requests []*http.Request
}

func newFakeAPI() *fakeAPI {
	api := &fakeAPI{routes: map[string]func(*http.Request) *http.Response{}}
	api.handle("/3/configuration", settingsBody)
	return api
}

func (a *fakeAPI) handle(path, body string) {
	a.handleFunc(path, func(*http.Request) *http.Response {
		return jsonResponse(http.StatusOK, body)
	})
}

func (a *fakeAPI) handleFunc(path string, fn func(*http.Request) *http.Response) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[path] = fn
}

func (a *fakeAPI) RoundTrip(req *http.Request) (*http.Response, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	fn, ok := a.routes[req.URL.Path]
	a.mu.Unlock()

	if !ok {
		return jsonResponse(http.StatusNotFound, `{"status_code":34,"status_message":"The resource you requested could not be found."}`), nil
	}
	return fn(req), nil
}

// requestsTo returns the recorded requests for path.
func (a *fakeAPI) requestsTo(path string) []*http.Request {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*http.Request
	for _, r := range a.requests {
		if r.URL.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// mockSearcher implements Searcher for testing
type mockSearcher struct {
	searchMovieFunc func(name string, options map[string]string) (*gotmdb.MovieSearchResults, error)
	searchTvFunc    func(name string, options map[string]string) (*gotmdb.TvSearchResults, error)
}

func (m *mockSearcher) SearchMovie(name string, options map[string]string) (*gotmdb.MovieSearchResults, error) {
	if m.searchMovieFunc != nil {
		return m.searchMovieFunc(name, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSearcher) SearchTv(name string, options map[string]string) (*gotmdb.TvSearchResults, error) {
	if m.searchTvFunc != nil {
		return m.searchTvFunc(name, options)
	}
	return nil, errors.New("not implemented")
}

func newTestService(t *testing.T, transport http.RoundTripper, searcher Searcher) *Service {
	t.Helper()

	if searcher == nil {
		searcher = &mockSearcher{}
	}
	svc, err := NewService(Options{
		APIKey:          "test-key",
		BaseURL:         testBaseURL,
		CacheDir:        t.TempDir(),
		UserAgent:       "moviedb/test",
		RequestInterval: -1,
		HTTPClient:      &http.Client{Transport: transport},
		Searcher:        searcher,
		Logger:          logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

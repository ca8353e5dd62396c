package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const settingsBody = `{"images":{"secure_base_url":"https://image.tmdb.test/t/p/"}}`

const matrixBody = `{
	"id": 603,
	"imdb_id": "tt0133093",
	"title": "The Matrix",
	"release_date": "1999-03-30",
	"images": {
		"posters": [{"file_path": "/poster.jpg", "width": 1000, "height": 1500, "iso_639_1": "en", "vote_average": 5.5, "vote_count": 10}],
		"backdrops": [
			{"file_path": "/bd-low.jpg", "width": 1920, "height": 1080, "vote_average": 5.1, "vote_count": 3},
			{"file_path": "/bd-high.jpg", "width": 3840, "height": 2160, "vote_average": 6.4, "vote_count": 8}
		]
	}
}`

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

// fakeTMDB serves fixed bodies by URL path and counts requests.
type fakeTMDB struct {
	mu     sync.Mutex
	routes map[string]string
	hits   map[string]int
}

func newFakeTMDB(routes map[string]string) *fakeTMDB {
	all := map[string]string{"/3/configuration": settingsBody}
	for path, body := range routes {
		all[path] = body
	}
	return &fakeTMDB{routes: all, hits: map[string]int{}}
}

func (f *fakeTMDB) client() *http.Client {
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.hits[req.URL.Path]++
		body, ok := f.routes[req.URL.Path]
		if !ok {
			return jsonResponse(http.StatusNotFound, `{"status_code":34}`), nil
		}
		return jsonResponse(http.StatusOK, body), nil
	})}
}

func (f *fakeTMDB) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// writeTestConfig writes a config pointing at the fake service and a
// temporary cache directory and returns its path.
func writeTestConfig(t *testing.T, cacheDir string) string {
	t.Helper()
	t.Setenv("TMDB_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := fmt.Sprintf(`[tmdb]
api_key = "test-key-1234"
base_url = "https://tmdb.test/3"
language = "en"
country = "US"

[cache]
dir = %q
`, cacheDir)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// runCLI executes the command tree with args against the given config and
// HTTP client.
func runCLI(t *testing.T, configPath string, client *http.Client, args ...string) (string, string, error) {
	t.Helper()
	return runApp(t, &commandContext{httpClient: client}, configPath, args...)
}

func runApp(t *testing.T, app *commandContext, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(app)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

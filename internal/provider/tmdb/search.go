package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/patrickmn/go-cache"
	gotmdb "github.com/ryanbradynd05/go-tmdb"
)

// dateLayout is the service's date format.
const dateLayout = "2006-01-02"

// Searcher is the subset of *tmdb.TMDb used for movie and tv text search.
type Searcher interface {
	SearchMovie(name string, options map[string]string) (*gotmdb.MovieSearchResults, error)
	SearchTv(name string, options map[string]string) (*gotmdb.TvSearchResults, error)
}

// Resolve identifies the entity described by info. With a known ID, TMDB or
// IMDb, the document is fetched (or reused from cache) and summarized as the
// single candidate carrying the TMDB ID. Without one a text search runs and its results are returned in
// the service's relevance order. The returned ID is the first candidate's.
func (s *Service) Resolve(ctx context.Context, info provider.LookupInfo) (string, []provider.SearchResult, error) {
	spec, err := specFor(info.Kind)
	if err != nil {
		return "", nil, err
	}

	if ref, ok := refFor(info); ok {
		result, err := s.resultFromDocument(ctx, ref, info)
		if err != nil {
			if provider.IsNotFound(err) {
				return "", []provider.SearchResult{}, nil
			}
			return "", nil, err
		}
		return result.ProviderIDs[provider.IDTmdb], []provider.SearchResult{result}, nil
	}

	if !spec.searchable || strings.TrimSpace(info.Name) == "" {
		return "", []provider.SearchResult{}, nil
	}

	results, err := s.search(ctx, info)
	if err != nil {
		if provider.IsNotFound(err) {
			return "", []provider.SearchResult{}, nil
		}
		return "", nil, err
	}
	if len(results) == 0 {
		return "", results, nil
	}
	return results[0].ProviderIDs[provider.IDTmdb], results, nil
}

func (s *Service) resultFromDocument(ctx context.Context, ref DocumentRef, info provider.LookupInfo) (provider.SearchResult, error) {
	doc, err := s.EnsureDocument(ctx, ref, FetchOptions{
		Language: info.Language,
		Country:  info.Country,
		Force:    info.Force,
	})
	if err != nil {
		return provider.SearchResult{}, err
	}

	settings, err := s.settings.get(ctx)
	if err != nil {
		return provider.SearchResult{}, err
	}

	result := provider.SearchResult{
		Name:               doc.GetTitle(),
		Overview:           *kindSpecs[ref.Kind].summary(doc),
		ImageURL:           ImageURL(settings.OriginalImageBaseURL(), primaryPath(doc)),
		ProviderIDs:        map[string]string{provider.IDTmdb: strconv.Itoa(doc.ID)},
		SearchProviderName: ProviderName,
	}
	if doc.ID == 0 {
		result.ProviderIDs[provider.IDTmdb] = ref.ID
	}
	if imdb := documentIMDbID(doc); imdb != "" {
		result.ProviderIDs[provider.IDImdb] = imdb
	}
	setPremiere(&result, doc.PremiereDateString())
	return result, nil
}

// search runs a text query, memoizing results per kind, name, year and
// language.
func (s *Service) search(ctx context.Context, info provider.LookupInfo) ([]provider.SearchResult, error) {
	key := searchKey(info)
	if cached, found := s.memo.Get(key); found {
		if results, ok := cached.([]provider.SearchResult); ok {
			s.logger.Debug("search memo hit", slog.String("key", key))
			return cloneResults(results), nil
		}
	}

	settings, err := s.settings.get(ctx)
	if err != nil {
		return nil, err
	}
	base := settings.OriginalImageBaseURL()

	var results []provider.SearchResult
	switch info.Kind {
	case provider.KindMovie, provider.KindTrailer:
		results, err = s.searchMovies(ctx, info, base)
	case provider.KindSeries:
		results, err = s.searchSeries(ctx, info, base)
	case provider.KindPerson:
		results, err = s.searchNamed(ctx, "/search/person", info, base)
	case provider.KindCollection:
		results, err = s.searchNamed(ctx, "/search/collection", info, base)
	default:
		return []provider.SearchResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	s.memo.Set(key, results, cache.DefaultExpiration)
	return cloneResults(results), nil
}

func (s *Service) searchMovies(ctx context.Context, info provider.LookupInfo, base string) ([]provider.SearchResult, error) {
	options := map[string]string{}
	if info.Year > 0 {
		options["year"] = strconv.Itoa(info.Year)
	}
	if info.Language != "" {
		options["language"] = NormalizeLanguage(info.Language, info.Country)
	}

	if err := s.limiter.wait(ctx); err != nil {
		return nil, err
	}
	found, err := s.searcher.SearchMovie(info.Name, options)
	if err != nil {
		return nil, fmt.Errorf("search movie %q: %w", info.Name, mapError(err))
	}

	results := []provider.SearchResult{}
	if found == nil {
		return results, nil
	}
	for _, m := range found.Results {
		result := provider.SearchResult{
			Name:               m.Title,
			Overview:           m.Overview,
			ImageURL:           ImageURL(base, m.PosterPath),
			ProviderIDs:        map[string]string{provider.IDTmdb: strconv.Itoa(m.ID)},
			SearchProviderName: ProviderName,
		}
		setPremiere(&result, m.ReleaseDate)
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) searchSeries(ctx context.Context, info provider.LookupInfo, base string) ([]provider.SearchResult, error) {
	options := map[string]string{}
	if info.Year > 0 {
		options["first_air_date_year"] = strconv.Itoa(info.Year)
	}
	if info.Language != "" {
		options["language"] = NormalizeLanguage(info.Language, info.Country)
	}

	if err := s.limiter.wait(ctx); err != nil {
		return nil, err
	}
	found, err := s.searcher.SearchTv(info.Name, options)
	if err != nil {
		return nil, fmt.Errorf("search series %q: %w", info.Name, mapError(err))
	}

	results := []provider.SearchResult{}
	if found == nil {
		return results, nil
	}
	for _, show := range found.Results {
		result := provider.SearchResult{
			Name:               show.Name,
			ImageURL:           ImageURL(base, show.PosterPath),
			ProviderIDs:        map[string]string{provider.IDTmdb: strconv.Itoa(show.ID)},
			SearchProviderName: ProviderName,
		}
		setPremiere(&result, show.FirstAirDate)
		results = append(results, result)
	}
	return results, nil
}

type namedSearchResults struct {
	Results []struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		Overview    string `json:"overview"`
		PosterPath  string `json:"poster_path"`
		ProfilePath string `json:"profile_path"`
	} `json:"results"`
}

// searchNamed covers the person and collection endpoints, which go-tmdb's
// typed client does not model the way the pipeline needs.
func (s *Service) searchNamed(ctx context.Context, path string, info provider.LookupInfo, base string) ([]provider.SearchResult, error) {
	query := url.Values{}
	query.Set("query", info.Name)
	query.Set("include_adult", "false")
	if info.Language != "" {
		query.Set("language", NormalizeLanguage(info.Language, info.Country))
	}

	var found namedSearchResults
	if err := s.client.get(ctx, path, query, &found); err != nil {
		return nil, fmt.Errorf("search %s %q: %w", info.Kind, info.Name, err)
	}

	results := []provider.SearchResult{}
	for _, r := range found.Results {
		image := r.PosterPath
		if image == "" {
			image = r.ProfilePath
		}
		results = append(results, provider.SearchResult{
			Name:               r.Name,
			Overview:           r.Overview,
			ImageURL:           ImageURL(base, image),
			ProviderIDs:        map[string]string{provider.IDTmdb: strconv.Itoa(r.ID)},
			SearchProviderName: ProviderName,
		})
	}
	return results, nil
}

func searchKey(info provider.LookupInfo) string {
	return strings.Join([]string{
		string(info.Kind),
		strings.ToLower(strings.TrimSpace(info.Name)),
		strconv.Itoa(info.Year),
		NormalizeLanguage(info.Language, info.Country),
	}, "|")
}

// setPremiere fills the premiere date and year when value parses; anything
// else is left unset.
func setPremiere(result *provider.SearchResult, value string) {
	if value == "" {
		return
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return
	}
	t = t.UTC()
	result.PremiereDate = &t
	result.ProductionYear = t.Year()
}

func cloneResults(in []provider.SearchResult) []provider.SearchResult {
	out := make([]provider.SearchResult, len(in))
	for i, r := range in {
		ids := make(map[string]string, len(r.ProviderIDs))
		for k, v := range r.ProviderIDs {
			ids[k] = v
		}
		r.ProviderIDs = ids
		out[i] = r
	}
	return out
}

func primaryPath(doc *Document) string {
	for _, p := range []string{doc.PosterPath, doc.ProfilePath, doc.StillPath} {
		if p != "" {
			return p
		}
	}
	return ""
}

func documentIMDbID(doc *Document) string {
	if doc.IMDbID != "" {
		return doc.IMDbID
	}
	if doc.ExternalIDs != nil {
		return doc.ExternalIDs.IMDbID
	}
	return ""
}

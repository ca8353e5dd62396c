package tmdb

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Digital-Shane/moviedb/internal/logging"
	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/patrickmn/go-cache"
	gotmdb "github.com/ryanbradynd05/go-tmdb"
)

// DefaultUserAgent identifies moviedb to the service.
const DefaultUserAgent = "moviedb/dev"

// Options configures a Service.
type Options struct {
	APIKey    string
	BaseURL   string
	CacheDir  string
	UserAgent string

	// RequestInterval spaces outbound requests. Zero selects
	// DefaultRequestInterval and a negative value disables throttling.
	RequestInterval time.Duration

	Freshness time.Duration
	SearchTTL time.Duration
	Timeout   time.Duration

	// HTTPClient overrides the client used for document, search and
	// settings requests.
	HTTPClient *http.Client

	// Searcher overrides the go-tmdb client used for movie and tv search.
	Searcher Searcher

	Logger *slog.Logger
}

// Service owns everything the providers share: one HTTP client, one rate
// limiter, the disk cache, the settings cache, the search memo and the memo
// of documents fetched by IMDb ID.
type Service struct {
	client   *apiClient
	limiter  *rateLimiter
	cache    *DiskCache
	settings *settingsCache
	searcher Searcher
	memo     *cache.Cache
	foreign  *cache.Cache
	logger   *slog.Logger

	providers []*Provider
}

// NewService builds a Service and one Provider per entity kind.
func NewService(opts Options) (*Service, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeAuthFailed,
			Message:  "api key is required",
			Err:      provider.ErrNotConfigured,
		}
	}
	if strings.TrimSpace(opts.CacheDir) == "" {
		return nil, errors.New("tmdb: cache directory is required")
	}

	logger := logging.Component(opts.Logger, "tmdb")

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	interval := opts.RequestInterval
	if interval == 0 {
		interval = DefaultRequestInterval
	}
	searchTTL := opts.SearchTTL
	if searchTTL <= 0 {
		searchTTL = time.Hour
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	searcher := opts.Searcher
	if searcher == nil {
		searcher = gotmdb.Init(gotmdb.Config{
			APIKey:   opts.APIKey,
			Proxies:  nil,
			UseProxy: false,
		})
	}

	limiter := newRateLimiter(interval, logger)
	client := &apiClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		userAgent:  userAgent,
		limiter:    limiter,
		logger:     logger,
	}

	freshness := opts.Freshness
	if freshness <= 0 {
		freshness = DefaultFreshness
	}

	svc := &Service{
		client:   client,
		limiter:  limiter,
		cache:    NewDiskCache(opts.CacheDir, freshness, logger),
		settings: &settingsCache{client: client},
		searcher: searcher,
		memo:     cache.New(searchTTL, 2*searchTTL),
		foreign:  cache.New(freshness, time.Hour),
		logger:   logger,
	}

	for _, kind := range provider.AllKinds {
		svc.providers = append(svc.providers, &Provider{svc: svc, spec: kindSpecs[kind]})
	}
	return svc, nil
}

// Providers returns one provider per entity kind.
func (s *Service) Providers() []provider.Provider {
	out := make([]provider.Provider, len(s.providers))
	for i, p := range s.providers {
		out[i] = p
	}
	return out
}

// Provider returns the provider for kind.
func (s *Service) Provider(kind provider.EntityKind) (*Provider, bool) {
	for _, p := range s.providers {
		if p.spec.kind == kind {
			return p, true
		}
	}
	return nil, false
}

// Register adds every provider to registry.
func (s *Service) Register(registry *provider.Registry) error {
	for _, p := range s.providers {
		if err := registry.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// Cache returns the document cache.
func (s *Service) Cache() *DiskCache {
	return s.cache
}

// Settings returns the service settings, fetching them on first use.
func (s *Service) Settings(ctx context.Context) (*ServiceSettings, error) {
	return s.settings.get(ctx)
}

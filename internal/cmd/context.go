package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Digital-Shane/moviedb/internal/config"
	"github.com/Digital-Shane/moviedb/internal/logging"
	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/Digital-Shane/moviedb/internal/provider/tmdb"
	"github.com/spf13/cobra"
)

// commandContext lazily builds the state shared by subcommands.
type commandContext struct {
	configPath string
	logLevel   string

	// httpClient replaces the service HTTP client when set.
	httpClient *http.Client
	// searcher replaces the go-tmdb movie and tv search client when set.
	searcher tmdb.Searcher

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	registryOnce sync.Once
	registry     *provider.Registry
	registryErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.configPath)
		if path == "" {
			c.config, c.configErr = config.Load()
			return
		}
		c.config, c.configErr = config.LoadFile(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger(cmd *cobra.Command) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}

		level := cfg.Logging.Level
		if strings.TrimSpace(c.logLevel) != "" {
			level = c.logLevel
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:      level,
			Format:     cfg.Logging.Format,
			File:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Output:     cmd.ErrOrStderr(),
		})
	})
	return c.logger, c.loggerErr
}

// ensureRegistry builds the TMDB service and registers one provider per
// entity kind.
func (c *commandContext) ensureRegistry(cmd *cobra.Command) (*provider.Registry, error) {
	c.registryOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.registryErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.registryErr = err
			return
		}
		logger, err := c.ensureLogger(cmd)
		if err != nil {
			c.registryErr = err
			return
		}

		svc, err := tmdb.NewService(tmdb.Options{
			APIKey:          cfg.TMDB.APIKey,
			BaseURL:         cfg.TMDB.BaseURL,
			CacheDir:        cfg.Cache.Dir,
			UserAgent:       cfg.TMDB.UserAgent,
			RequestInterval: cfg.RequestInterval(),
			Freshness:       cfg.Freshness(),
			SearchTTL:       cfg.SearchTTL(),
			Timeout:         cfg.Timeout(),
			HTTPClient:      c.httpClient,
			Searcher:        c.searcher,
			Logger:          logger,
		})
		if err != nil {
			c.registryErr = fmt.Errorf("initialize tmdb: %w", err)
			return
		}

		registry := provider.NewRegistry()
		if err := svc.Register(registry); err != nil {
			c.registryErr = fmt.Errorf("register providers: %w", err)
			return
		}
		c.registry = registry
	})
	return c.registry, c.registryErr
}

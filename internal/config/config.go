package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvAPIKey overrides tmdb.api_key when set.
const EnvAPIKey = "TMDB_API_KEY"

// Config holds every setting moviedb reads from config.toml
type Config struct {
	TMDB     TMDB     `toml:"tmdb"`
	Cache    Cache    `toml:"cache"`
	Logging  Logging  `toml:"logging"`
	Server   Server   `toml:"server"`
	Prefetch Prefetch `toml:"prefetch"`
}

// TMDB configures the external metadata service client.
type TMDB struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Language          string `toml:"language"`
	Country           string `toml:"country"`
	RequestIntervalMS int    `toml:"request_interval_ms"`
	FreshnessHours    int    `toml:"freshness_hours"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	UserAgent         string `toml:"user_agent"`
}

// Cache configures the on-disk document cache and the search memo.
type Cache struct {
	Dir              string `toml:"dir"`
	SearchTTLMinutes int    `toml:"search_ttl_minutes"`
}

// Logging configures the slog logger.
type Logging struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Server configures the HTTP facade.
type Server struct {
	Bind string `toml:"bind"`
}

// Prefetch configures the cache warming worker pool.
type Prefetch struct {
	Workers int `toml:"workers"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TMDB: TMDB{
			BaseURL:           "https://api.themoviedb.org/3",
			Language:          "en",
			Country:           "US",
			RequestIntervalMS: 300,
			FreshnessHours:    48,
			TimeoutSeconds:    30,
		},
		Cache: Cache{
			Dir:              "~/.moviedb/cache",
			SearchTTLMinutes: 60,
		},
		Logging: Logging{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Server: Server{
			Bind: "127.0.0.1:8089",
		},
		Prefetch: Prefetch{
			Workers: 4,
		},
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".moviedb", "config.toml"), nil
}

// Load reads the configuration from the default path
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path. A missing file yields the
// defaults; zero fields in an existing file are back-filled from them.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		var parsed Config
		if err := toml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		parsed.fillDefaults(cfg)
		cfg = &parsed
	}

	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		cfg.TMDB.APIKey = key
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) fillDefaults(defaults *Config) {
	if cfg.TMDB.BaseURL == "" {
		cfg.TMDB.BaseURL = defaults.TMDB.BaseURL
	}
	if cfg.TMDB.RequestIntervalMS == 0 {
		cfg.TMDB.RequestIntervalMS = defaults.TMDB.RequestIntervalMS
	}
	if cfg.TMDB.FreshnessHours == 0 {
		cfg.TMDB.FreshnessHours = defaults.TMDB.FreshnessHours
	}
	if cfg.TMDB.TimeoutSeconds == 0 {
		cfg.TMDB.TimeoutSeconds = defaults.TMDB.TimeoutSeconds
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = defaults.Cache.Dir
	}
	if cfg.Cache.SearchTTLMinutes == 0 {
		cfg.Cache.SearchTTLMinutes = defaults.Cache.SearchTTLMinutes
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = defaults.Logging.MaxSizeMB
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = defaults.Server.Bind
	}
	if cfg.Prefetch.Workers == 0 {
		cfg.Prefetch.Workers = defaults.Prefetch.Workers
	}
}

func (cfg *Config) expandPaths() error {
	dir, err := expandPath(cfg.Cache.Dir)
	if err != nil {
		return err
	}
	cfg.Cache.Dir = dir

	if cfg.Logging.File != "" {
		file, err := expandPath(cfg.Logging.File)
		if err != nil {
			return err
		}
		cfg.Logging.File = file
	}
	return nil
}

func expandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}

// Validate ensures the configuration can drive network calls.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.TMDB.APIKey) == "" {
		path, err := ConfigPath()
		if err != nil {
			path = "~/.moviedb/config.toml"
		}
		return fmt.Errorf("tmdb.api_key is required. Set %s or edit %s (create with 'moviedb config init')", EnvAPIKey, path)
	}
	if cfg.TMDB.RequestIntervalMS < 0 {
		return errors.New("tmdb.request_interval_ms must not be negative")
	}
	if cfg.TMDB.FreshnessHours <= 0 {
		return errors.New("tmdb.freshness_hours must be positive")
	}
	if cfg.Cache.Dir == "" {
		return errors.New("cache.dir must be set")
	}
	if cfg.Prefetch.Workers < 1 {
		return errors.New("prefetch.workers must be at least 1")
	}
	return nil
}

// RequestInterval is the minimum spacing between outbound requests.
func (cfg *Config) RequestInterval() time.Duration {
	return time.Duration(cfg.TMDB.RequestIntervalMS) * time.Millisecond
}

// Freshness is the disk cache freshness window.
func (cfg *Config) Freshness() time.Duration {
	return time.Duration(cfg.TMDB.FreshnessHours) * time.Hour
}

// Timeout bounds a single HTTP exchange.
func (cfg *Config) Timeout() time.Duration {
	return time.Duration(cfg.TMDB.TimeoutSeconds) * time.Second
}

// SearchTTL is how long search results are memoized.
func (cfg *Config) SearchTTL() time.Duration {
	return time.Duration(cfg.Cache.SearchTTLMinutes) * time.Minute
}

// Save writes the configuration to the default path
func (cfg *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return cfg.SaveFile(path)
}

// SaveFile writes the configuration to path
func (cfg *Config) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

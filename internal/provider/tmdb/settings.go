package tmdb

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ServiceSettings is the /configuration payload.
type ServiceSettings struct {
	Images ImageSettings `json:"images"`
}

// ImageSettings describes where images are served from.
type ImageSettings struct {
	BaseURL       string   `json:"base_url"`
	SecureBaseURL string   `json:"secure_base_url"`
	BackdropSizes []string `json:"backdrop_sizes"`
	LogoSizes     []string `json:"logo_sizes"`
	PosterSizes   []string `json:"poster_sizes"`
	ProfileSizes  []string `json:"profile_sizes"`
	StillSizes    []string `json:"still_sizes"`
}

// ImageBaseURL returns the URL prefix for images of the given size class,
// preferring https.
func (s ImageSettings) ImageBaseURL(size string) string {
	base := s.SecureBaseURL
	if base == "" {
		base = s.BaseURL
	}
	return base + size
}

// OriginalImageBaseURL is the prefix for full size images.
func (s *ServiceSettings) OriginalImageBaseURL() string {
	return s.Images.ImageBaseURL("original")
}

// settingsCache fetches the service settings on first use and keeps them for
// the life of the owning Service. Concurrent first callers share one request;
// a failed request is not remembered.
type settingsCache struct {
	client *apiClient
	group  singleflight.Group

	mu       sync.RWMutex
	settings *ServiceSettings
}

func (c *settingsCache) get(ctx context.Context) (*ServiceSettings, error) {
	if s := c.cached(); s != nil {
		return s, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared request outlives any single caller's cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("settings", func() (any, error) {
		if s := c.cached(); s != nil {
			return s, nil
		}

		var s ServiceSettings
		if err := c.client.get(fetchCtx, "/configuration", nil, &s); err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.settings = &s
		c.mu.Unlock()
		return &s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ServiceSettings), nil
	}
}

func (c *settingsCache) cached() *ServiceSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

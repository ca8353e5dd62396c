package tmdb

import (
	"context"
	"log/slog"

	"github.com/Digital-Shane/moviedb/internal/provider"
)

const (
	// ProviderName is the name the host shows for this source.
	ProviderName = "TheMovieDb"

	providerName = "tmdb"
)

// Provider serves one entity kind. All providers of a Service share its
// client, limiter, caches and settings.
type Provider struct {
	svc  *Service
	spec kindSpec
}

var _ provider.Provider = (*Provider)(nil)

// Name returns the provider name
func (p *Provider) Name() string {
	return ProviderName
}

// Kind returns the entity kind this provider serves
func (p *Provider) Kind() provider.EntityKind {
	return p.spec.kind
}

// Order returns the image ordering hint; the metadata hint is in Capabilities.
func (p *Provider) Order() int {
	return p.spec.imageOrder
}

// Capabilities returns what this provider can do
func (p *Provider) Capabilities() provider.ProviderCapabilities {
	return provider.ProviderCapabilities{
		Kinds:         []provider.EntityKind{p.spec.kind},
		ImageTypes:    append([]provider.ImageType(nil), p.spec.imageTypes...),
		Searchable:    p.spec.searchable,
		ImageOrder:    p.spec.imageOrder,
		MetadataOrder: p.spec.metadataOrder,
	}
}

// Supports reports whether info is of this provider's kind.
func (p *Provider) Supports(info provider.LookupInfo) bool {
	return info.Kind == p.spec.kind
}

// SupportedImageTypes returns the image slots offered for info.
func (p *Provider) SupportedImageTypes(info provider.LookupInfo) []provider.ImageType {
	if !p.Supports(info) {
		return nil
	}
	return append([]provider.ImageType(nil), p.spec.imageTypes...)
}

// FetchImages returns the images for info. Entities without a usable ID and
// records the service does not have yield an empty list.
func (p *Provider) FetchImages(ctx context.Context, info provider.LookupInfo) ([]provider.RemoteImage, error) {
	if !p.Supports(info) {
		return []provider.RemoteImage{}, nil
	}

	ref, ok := refFor(info)
	if !ok {
		p.svc.logger.Debug("no identifier for image lookup", slog.String("kind", string(info.Kind)), slog.String("name", info.Name))
		return []provider.RemoteImage{}, nil
	}

	opts := FetchOptions{Country: info.Country, Force: info.Force}
	if p.spec.localizedImages {
		opts.Language = info.Language
	}

	doc, err := p.svc.EnsureDocument(ctx, ref, opts)
	if err != nil {
		if provider.IsNotFound(err) {
			p.svc.logger.Debug("no images, record not found", slog.String("ref", ref.String()))
			return []provider.RemoteImage{}, nil
		}
		return nil, err
	}

	settings, err := p.svc.settings.get(ctx)
	if err != nil {
		return nil, err
	}

	return toRemoteImages(p.spec, doc.Images, settings.OriginalImageBaseURL()), nil
}

// FetchMetadata returns the field set for info, resolving an ID by search
// when the entity has none. A nil result with a nil error means the service
// has no match.
func (p *Provider) FetchMetadata(ctx context.Context, info provider.LookupInfo) (*provider.Metadata, error) {
	if !p.Supports(info) {
		return nil, nil
	}

	ref, ok := refFor(info)
	if !ok {
		id, _, err := p.svc.Resolve(ctx, info)
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, nil
		}
		ref.Kind, ref.ID = info.Kind, id
	}

	doc, err := p.svc.EnsureDocument(ctx, ref, FetchOptions{
		Language: info.Language,
		Country:  info.Country,
		Force:    info.Force,
	})
	if err != nil {
		if provider.IsNotFound(err) {
			p.svc.logger.Debug("no metadata, record not found", slog.String("ref", ref.String()))
			return nil, nil
		}
		return nil, err
	}

	settings, err := p.svc.settings.get(ctx)
	if err != nil {
		return nil, err
	}

	return toMetadata(p.spec, doc, info.Country, settings.OriginalImageBaseURL()), nil
}

// Search returns identification candidates for info.
func (p *Provider) Search(ctx context.Context, info provider.LookupInfo) ([]provider.SearchResult, error) {
	if !p.Supports(info) {
		return []provider.SearchResult{}, nil
	}
	_, results, err := p.svc.Resolve(ctx, info)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// refFor derives the document address from the IDs a host entity carries.
// Movies without a TMDB ID fall back to their IMDb ID.
func refFor(info provider.LookupInfo) (DocumentRef, bool) {
	ref := DocumentRef{Kind: info.Kind}

	switch info.Kind {
	case provider.KindMovie, provider.KindMusicVideo, provider.KindTrailer:
		ref.ID = info.ProviderID(provider.IDTmdb)
		if ref.ID == "" {
			ref.ID = info.ProviderID(provider.IDImdb)
		}
	case provider.KindSeries, provider.KindPerson:
		ref.ID = info.ProviderID(provider.IDTmdb)
	case provider.KindSeason:
		ref.ID = info.SeriesProviderID(provider.IDTmdb)
		ref.Season = info.SeasonNumber
		if ref.Season < 0 {
			return ref, false
		}
	case provider.KindEpisode:
		ref.ID = info.SeriesProviderID(provider.IDTmdb)
		ref.Season = info.SeasonNumber
		ref.Episode = info.EpisodeNumber
		if ref.Season < 0 || ref.Episode < 0 {
			return ref, false
		}
	case provider.KindCollection:
		ref.ID = info.ProviderID(provider.IDTmdbCollection)
		if ref.ID == "" {
			ref.ID = info.ProviderID(provider.IDTmdb)
		}
	default:
		return ref, false
	}

	return ref, ref.ID != ""
}

package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Digital-Shane/moviedb/internal/provider"
)

// FetchOptions tune a single document lookup.
type FetchOptions struct {
	Language string
	Country  string

	// Force skips the freshness check and always refetches.
	Force bool
}

// EnsureDocument returns the cached document for ref when it is fresh and
// fetches it otherwise.
func (s *Service) EnsureDocument(ctx context.Context, ref DocumentRef, opts FetchOptions) (*Document, error) {
	spec, err := specFor(ref.Kind)
	if err != nil {
		return nil, err
	}
	if err := validateRef(ref); err != nil {
		return nil, err
	}

	language := spec.language(NormalizeLanguage(opts.Language, opts.Country))
	if !opts.Force {
		if !persistable(ref) {
			if doc, ok := s.foreign.Get(foreignKey(ref, language)); ok {
				return doc.(*Document), nil
			}
		} else {
			doc, ok, err := s.cache.Load(ctx, ref, language)
			if err != nil {
				return nil, err
			}
			if ok {
				return doc, nil
			}
		}
	}

	return s.FetchDocument(ctx, ref, FetchOptions{Language: language, Country: opts.Country})
}

// FetchDocument downloads ref, applies the English summary fallback and
// persists the result before returning it. Documents addressed by a foreign
// ID (an IMDb ID for a movie) are kept in memory for the freshness window
// instead of on disk.
func (s *Service) FetchDocument(ctx context.Context, ref DocumentRef, opts FetchOptions) (*Document, error) {
	spec, err := specFor(ref.Kind)
	if err != nil {
		return nil, err
	}
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	opts.Language = spec.language(NormalizeLanguage(opts.Language, opts.Country))

	query := url.Values{}
	query.Set("append_to_response", spec.appendTo)
	if opts.Language != "" {
		query.Set("language", NormalizeLanguage(opts.Language, opts.Country))
		query.Set("include_image_language", GetImageLanguagesParam(opts.Language, opts.Country))
	}

	var doc Document
	if err := s.client.get(ctx, spec.endpoint(ref), query, &doc); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	doc.normalize()

	if err := s.applyFallback(ctx, spec, ref, query, opts.Language, &doc); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !persistable(ref) {
		s.foreign.SetDefault(foreignKey(ref, opts.Language), &doc)
	} else {
		if err := s.cache.Store(ctx, ref, opts.Language, &doc); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn("persist document",
				slog.String("ref", ref.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	return &doc, nil
}

// applyFallback refetches in English when the localized summary is empty and
// copies only the summary across. A missing English record leaves doc as is.
func (s *Service) applyFallback(ctx context.Context, spec kindSpec, ref DocumentRef, query url.Values, language string, doc *Document) error {
	summary := spec.summary(doc)
	if *summary != "" || language == "" || isEnglish(language) {
		return nil
	}

	s.logger.Info("no localized summary, trying English",
		slog.String("ref", ref.String()),
		slog.String("language", language),
	)

	fallback := url.Values{}
	for k, v := range query {
		fallback[k] = v
	}
	fallback.Set("language", "en")

	var english Document
	if err := s.client.get(ctx, spec.endpoint(ref), fallback, &english); err != nil {
		if provider.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("fetch %s English fallback: %w", ref, err)
	}

	*summary = *spec.summary(&english)
	return nil
}

func validateRef(ref DocumentRef) error {
	if strings.TrimSpace(ref.ID) == "" {
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeMissingID,
			Message:  fmt.Sprintf("%s lookup requires an external ID", ref.Kind),
		}
	}
	if strings.ContainsFunc(ref.ID, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-' || r == '_')
	}) {
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeMissingID,
			Message:  fmt.Sprintf("%s lookup has a malformed external ID %q", ref.Kind, ref.ID),
		}
	}
	if ref.Season < 0 || ref.Episode < 0 {
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeMissingID,
			Message:  fmt.Sprintf("%s lookup requires season and episode numbers", ref.Kind),
		}
	}
	return nil
}

// persistable reports whether ref uses the service's own numeric ID and so
// has a home in the cache directory layout.
func persistable(ref DocumentRef) bool {
	for _, r := range ref.ID {
		if r < '0' || r > '9' {
			return false
		}
	}
	return ref.ID != ""
}

// foreignKey addresses a document fetched by foreign ID in the memory memo.
func foreignKey(ref DocumentRef, language string) string {
	return ref.String() + "|" + language
}

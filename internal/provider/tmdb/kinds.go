package tmdb

import (
	"fmt"
	"path/filepath"

	"github.com/Digital-Shane/moviedb/internal/provider"
)

// ImageCategory names one candidate list inside an ImageCollection.
type ImageCategory string

const (
	CategoryPoster   ImageCategory = "posters"
	CategoryBackdrop ImageCategory = "backdrops"
	CategoryStill    ImageCategory = "stills"
	CategoryProfile  ImageCategory = "profiles"
)

// DocumentRef identifies one document. Seasons and episodes are addressed by
// their parent series ID plus index numbers.
type DocumentRef struct {
	Kind    provider.EntityKind
	ID      string
	Season  int
	Episode int
}

func (r DocumentRef) String() string {
	switch r.Kind {
	case provider.KindSeason:
		return fmt.Sprintf("%s %s/s%d", r.Kind, r.ID, r.Season)
	case provider.KindEpisode:
		return fmt.Sprintf("%s %s/s%de%d", r.Kind, r.ID, r.Season, r.Episode)
	}
	return fmt.Sprintf("%s %s", r.Kind, r.ID)
}

// kindSpec parameterizes the shared fetch, cache and select pipeline for one
// entity kind.
type kindSpec struct {
	kind provider.EntityKind

	// cacheDir is the subdirectory under the cache root.
	cacheDir string

	// appendTo is the append_to_response value.
	appendTo string

	endpoint func(DocumentRef) string
	fileName func(ref DocumentRef, language string) string

	// summary points at the field the English fallback fills.
	summary func(*Document) *string

	imageTypes []provider.ImageType
	categories map[provider.ImageType]ImageCategory

	// localizedImages requests images in the item language rather than all.
	localizedImages bool

	// localized is false for kinds fetched once regardless of language.
	localized bool

	searchable    bool
	imageOrder    int
	metadataOrder int
}

func languageFile(prefix, language string) string {
	if language == "" {
		language = "alllang"
	}
	return fmt.Sprintf("%s-%s.json", prefix, language)
}

func allFile(_ DocumentRef, language string) string {
	return languageFile("all", language)
}

func overviewField(d *Document) *string  { return &d.Overview }
func biographyField(d *Document) *string { return &d.Biography }

func movieSpec(kind provider.EntityKind) kindSpec {
	return kindSpec{
		kind:     kind,
		cacheDir: "tmdb-movies2",
		appendTo: "casts,releases,images,keywords,trailers",
		endpoint: func(r DocumentRef) string { return "/movie/" + r.ID },
		fileName: allFile,
		summary:  overviewField,
		imageTypes: []provider.ImageType{
			provider.ImageTypePrimary,
			provider.ImageTypeBackdrop,
		},
		categories: map[provider.ImageType]ImageCategory{
			provider.ImageTypePrimary:  CategoryPoster,
			provider.ImageTypeBackdrop: CategoryBackdrop,
		},
		localized:     true,
		searchable:    kind != provider.KindMusicVideo,
		imageOrder:    0,
		metadataOrder: 1,
	}
}

var kindSpecs = map[provider.EntityKind]kindSpec{
	provider.KindMovie:      movieSpec(provider.KindMovie),
	provider.KindMusicVideo: movieSpec(provider.KindMusicVideo),
	provider.KindTrailer:    movieSpec(provider.KindTrailer),

	provider.KindSeries: {
		kind:     provider.KindSeries,
		cacheDir: "tmdb-tv",
		appendTo: "credits,images,keywords,external_ids,videos,content_ratings",
		endpoint: func(r DocumentRef) string { return "/tv/" + r.ID },
		fileName: allFile,
		summary:  overviewField,
		imageTypes: []provider.ImageType{
			provider.ImageTypePrimary,
			provider.ImageTypeBackdrop,
		},
		categories: map[provider.ImageType]ImageCategory{
			provider.ImageTypePrimary:  CategoryPoster,
			provider.ImageTypeBackdrop: CategoryBackdrop,
		},
		localized:     true,
		searchable:    true,
		imageOrder:    2,
		metadataOrder: 1,
	},

	provider.KindSeason: {
		kind:     provider.KindSeason,
		cacheDir: "tmdb-tv",
		appendTo: "images,external_ids,credits,videos",
		endpoint: func(r DocumentRef) string {
			return fmt.Sprintf("/tv/%s/season/%d", r.ID, r.Season)
		},
		fileName: func(r DocumentRef, language string) string {
			return languageFile(fmt.Sprintf("season-%d", r.Season), language)
		},
		summary:         overviewField,
		imageTypes:      []provider.ImageType{provider.ImageTypePrimary},
		categories:      map[provider.ImageType]ImageCategory{provider.ImageTypePrimary: CategoryPoster},
		localizedImages: true,
		localized:       true,
		imageOrder:      2,
		metadataOrder:   1,
	},

	provider.KindEpisode: {
		kind:     provider.KindEpisode,
		cacheDir: "tmdb-tv",
		appendTo: "images,external_ids,credits,videos",
		endpoint: func(r DocumentRef) string {
			return fmt.Sprintf("/tv/%s/season/%d/episode/%d", r.ID, r.Season, r.Episode)
		},
		fileName: func(r DocumentRef, language string) string {
			return languageFile(fmt.Sprintf("season-%d-episode-%d", r.Season, r.Episode), language)
		},
		summary:         overviewField,
		imageTypes:      []provider.ImageType{provider.ImageTypePrimary},
		categories:      map[provider.ImageType]ImageCategory{provider.ImageTypePrimary: CategoryStill},
		localizedImages: true,
		localized:       true,
		imageOrder:      1,
		metadataOrder:   1,
	},

	provider.KindPerson: {
		kind:          provider.KindPerson,
		cacheDir:      "tmdb-people",
		appendTo:      "images,external_ids",
		endpoint:      func(r DocumentRef) string { return "/person/" + r.ID },
		fileName:      allFile,
		summary:       biographyField,
		imageTypes:    []provider.ImageType{provider.ImageTypePrimary},
		categories:    map[provider.ImageType]ImageCategory{provider.ImageTypePrimary: CategoryProfile},
		searchable:    true,
		imageOrder:    0,
		metadataOrder: 1,
	},

	provider.KindCollection: {
		kind:     provider.KindCollection,
		cacheDir: "tmdb-collections",
		appendTo: "images",
		endpoint: func(r DocumentRef) string { return "/collection/" + r.ID },
		fileName: allFile,
		summary:  overviewField,
		imageTypes: []provider.ImageType{
			provider.ImageTypePrimary,
			provider.ImageTypeBackdrop,
		},
		categories: map[provider.ImageType]ImageCategory{
			provider.ImageTypePrimary:  CategoryPoster,
			provider.ImageTypeBackdrop: CategoryBackdrop,
		},
		localized:     true,
		searchable:    true,
		imageOrder:    0,
		metadataOrder: 1,
	},
}

func specFor(kind provider.EntityKind) (kindSpec, error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return kindSpec{}, fmt.Errorf("unsupported entity kind %q", kind)
	}
	return spec, nil
}

// relPath is the document's location below the cache root.
func (s kindSpec) relPath(ref DocumentRef, language string) string {
	return filepath.Join(s.cacheDir, ref.ID, s.fileName(ref, language))
}

// language returns the language a document is fetched and cached under.
func (s kindSpec) language(language string) string {
	if !s.localized {
		return ""
	}
	return language
}

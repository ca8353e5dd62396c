package provider

import (
	"context"
	"time"
)

// EntityKind identifies the shape of a library entity.
type EntityKind string

const (
	KindMovie      EntityKind = "movie"
	KindMusicVideo EntityKind = "musicvideo"
	KindTrailer    EntityKind = "trailer"
	KindSeries     EntityKind = "series"
	KindSeason     EntityKind = "season"
	KindEpisode    EntityKind = "episode"
	KindPerson     EntityKind = "person"
	KindCollection EntityKind = "collection"
)

// AllKinds lists every entity kind in a stable order.
var AllKinds = []EntityKind{
	KindMovie,
	KindMusicVideo,
	KindTrailer,
	KindSeries,
	KindSeason,
	KindEpisode,
	KindPerson,
	KindCollection,
}

// ParseKind maps user input such as "tv" or "boxset" onto an EntityKind.
func ParseKind(s string) (EntityKind, bool) {
	switch s {
	case "movie", "movies", "film":
		return KindMovie, true
	case "musicvideo", "music-video":
		return KindMusicVideo, true
	case "trailer":
		return KindTrailer, true
	case "series", "show", "tv":
		return KindSeries, true
	case "season":
		return KindSeason, true
	case "episode":
		return KindEpisode, true
	case "person", "people":
		return KindPerson, true
	case "collection", "boxset":
		return KindCollection, true
	}
	return "", false
}

// ImageType is the host-facing image slot an image is offered for.
type ImageType string

const (
	ImageTypePrimary  ImageType = "Primary"
	ImageTypeBackdrop ImageType = "Backdrop"
)

// Provider ID keys stored on host entities.
const (
	IDTmdb           = "Tmdb"
	IDImdb           = "Imdb"
	IDTvdb           = "Tvdb"
	IDTmdbCollection = "TmdbCollection"
)

// Provider is implemented by every metadata/image source the host consumes.
type Provider interface {
	// Identification
	Name() string
	Kind() EntityKind

	// Ordering hint, lower values are preferred by the host
	Order() int

	// Capability discovery
	Capabilities() ProviderCapabilities
	Supports(info LookupInfo) bool
	SupportedImageTypes(info LookupInfo) []ImageType

	// Data fetching
	FetchImages(ctx context.Context, info LookupInfo) ([]RemoteImage, error)
	FetchMetadata(ctx context.Context, info LookupInfo) (*Metadata, error)
	Search(ctx context.Context, info LookupInfo) ([]SearchResult, error)
}

// ProviderCapabilities describes what a provider can do
type ProviderCapabilities struct {
	Kinds         []EntityKind // Entity kinds served
	ImageTypes    []ImageType  // Image slots offered
	Searchable    bool         // Whether a text search exists for the kind
	ImageOrder    int          // Order used when the host composes image sources
	MetadataOrder int          // Order used when the host composes metadata sources
}

// LookupInfo is the host's view of an entity being identified or refreshed.
type LookupInfo struct {
	Kind EntityKind
	Name string
	Year int

	// ProviderIDs holds identifiers keyed by IDTmdb, IDImdb and friends.
	ProviderIDs map[string]string

	// Parent series identifiers for seasons and episodes. SeriesName is
	// used to resolve the series when no identifier is known.
	SeriesProviderIDs map[string]string
	SeriesName        string
	SeasonNumber      int
	EpisodeNumber     int

	Language string
	Country  string

	// Force skips the disk cache freshness check.
	Force bool
}

// ProviderID returns the identifier stored under key, or "".
func (i LookupInfo) ProviderID(key string) string {
	if i.ProviderIDs == nil {
		return ""
	}
	return i.ProviderIDs[key]
}

// SeriesProviderID returns the parent series identifier stored under key.
func (i LookupInfo) SeriesProviderID(key string) string {
	if i.SeriesProviderIDs == nil {
		return ""
	}
	return i.SeriesProviderIDs[key]
}

// RemoteImage is one image offered to the host's image selection.
type RemoteImage struct {
	URL             string    `json:"url"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	Language        string    `json:"language,omitempty"`
	CommunityRating float64   `json:"community_rating"`
	VoteCount       int       `json:"vote_count"`
	Type            ImageType `json:"type"`
	ProviderName    string    `json:"provider_name"`
}

// SearchResult is one identification candidate.
type SearchResult struct {
	Name               string            `json:"name"`
	Overview           string            `json:"overview,omitempty"`
	ImageURL           string            `json:"image_url,omitempty"`
	PremiereDate       *time.Time        `json:"premiere_date,omitempty"`
	ProductionYear     int               `json:"production_year,omitempty"`
	ProviderIDs        map[string]string `json:"provider_ids"`
	SearchProviderName string            `json:"search_provider_name"`
}

// Metadata is the field set a provider fills for a host entity.
type Metadata struct {
	Kind EntityKind `json:"kind"`

	Title         string `json:"title"`
	OriginalTitle string `json:"original_title,omitempty"`
	Overview      string `json:"overview,omitempty"`
	Tagline       string `json:"tagline,omitempty"`
	HomePageURL   string `json:"homepage,omitempty"`

	CommunityRating float64 `json:"community_rating,omitempty"`
	VoteCount       int     `json:"vote_count,omitempty"`
	OfficialRating  string  `json:"official_rating,omitempty"`

	PremiereDate   *time.Time `json:"premiere_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	ProductionYear int        `json:"production_year,omitempty"`
	RuntimeMinutes int        `json:"runtime_minutes,omitempty"`
	Status         string     `json:"status,omitempty"`

	Genres   []string `json:"genres,omitempty"`
	Studios  []string `json:"studios,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Trailers []string `json:"trailers,omitempty"`
	People   []Person `json:"people,omitempty"`

	// TV-specific
	SeasonNumber  int `json:"season_number,omitempty"`
	EpisodeNumber int `json:"episode_number,omitempty"`

	// Person-specific
	PlaceOfBirth string `json:"place_of_birth,omitempty"`

	ProviderIDs map[string]string `json:"provider_ids"`
}

// Person is a cast or crew credit.
type Person struct {
	Name        string            `json:"name"`
	Role        string            `json:"role,omitempty"`
	Type        string            `json:"type"`
	SortOrder   int               `json:"sort_order"`
	ImageURL    string            `json:"image_url,omitempty"`
	ProviderIDs map[string]string `json:"provider_ids,omitempty"`
}

// Person credit types.
const (
	PersonActor    = "Actor"
	PersonDirector = "Director"
	PersonWriter   = "Writer"
	PersonProducer = "Producer"
	PersonGuest    = "GuestStar"
)

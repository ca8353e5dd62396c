package tmdb

// ImageCandidate is one image option with the service's voting data.
type ImageCandidate struct {
	FilePath    string  `json:"file_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Language    string  `json:"iso_639_1"`
	AspectRatio float64 `json:"aspect_ratio"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
}

// ImageCollection partitions a document's images by category. After decode or
// cache load every list is non-nil.
type ImageCollection struct {
	Posters   []ImageCandidate `json:"posters"`
	Backdrops []ImageCandidate `json:"backdrops"`
	Stills    []ImageCandidate `json:"stills"`
	Profiles  []ImageCandidate `json:"profiles"`
}

func (c *ImageCollection) normalize() {
	if c.Posters == nil {
		c.Posters = []ImageCandidate{}
	}
	if c.Backdrops == nil {
		c.Backdrops = []ImageCandidate{}
	}
	if c.Stills == nil {
		c.Stills = []ImageCandidate{}
	}
	if c.Profiles == nil {
		c.Profiles = []ImageCandidate{}
	}
}

// NamedItem covers genres, companies, networks and keywords.
type NamedItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastMember is one acting credit.
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	Order       int    `json:"order"`
	ProfilePath string `json:"profile_path"`
}

// CrewMember is one crew credit.
type CrewMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	Job         string `json:"job"`
	ProfilePath string `json:"profile_path"`
}

// Credits is the casts (movie) or credits (tv) block.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Releases holds per-country movie certifications.
type Releases struct {
	Countries []struct {
		Country       string `json:"iso_3166_1"`
		Certification string `json:"certification"`
		ReleaseDate   string `json:"release_date"`
	} `json:"countries"`
}

// ContentRatings holds per-country tv ratings.
type ContentRatings struct {
	Results []struct {
		Country string `json:"iso_3166_1"`
		Rating  string `json:"rating"`
	} `json:"results"`
}

// Keywords is keyed "keywords" for movies and "results" for tv.
type Keywords struct {
	Keywords []NamedItem `json:"keywords,omitempty"`
	Results  []NamedItem `json:"results,omitempty"`
}

// Trailers is the movie trailers block.
type Trailers struct {
	Youtube []struct {
		Name   string `json:"name"`
		Size   string `json:"size"`
		Source string `json:"source"`
	} `json:"youtube"`
}

// Videos is the tv videos block.
type Videos struct {
	Results []struct {
		Key  string `json:"key"`
		Name string `json:"name"`
		Site string `json:"site"`
		Type string `json:"type"`
	} `json:"results"`
}

// ExternalIDs holds cross references to other databases.
type ExternalIDs struct {
	IMDbID string `json:"imdb_id"`
	TVDBID int    `json:"tvdb_id"`
}

// CollectionRef links a movie to the collection it belongs to.
type CollectionRef struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
}

// CollectionPart is one movie inside a collection.
type CollectionPart struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
}

// Document is the full payload for one entity and language. It is the union
// of the movie, tv, season, episode, person and collection shapes; fields a
// kind does not carry stay zero.
type Document struct {
	ID            int    `json:"id"`
	IMDbID        string `json:"imdb_id,omitempty"`
	Title         string `json:"title,omitempty"`
	Name          string `json:"name,omitempty"`
	OriginalTitle string `json:"original_title,omitempty"`
	OriginalName  string `json:"original_name,omitempty"`
	Overview      string `json:"overview,omitempty"`
	Biography     string `json:"biography,omitempty"`
	Tagline       string `json:"tagline,omitempty"`
	Homepage      string `json:"homepage,omitempty"`
	Status        string `json:"status,omitempty"`

	ReleaseDate  string `json:"release_date,omitempty"`
	FirstAirDate string `json:"first_air_date,omitempty"`
	LastAirDate  string `json:"last_air_date,omitempty"`
	AirDate      string `json:"air_date,omitempty"`
	Birthday     string `json:"birthday,omitempty"`
	Deathday     string `json:"deathday,omitempty"`
	PlaceOfBirth string `json:"place_of_birth,omitempty"`

	PosterPath   string `json:"poster_path,omitempty"`
	BackdropPath string `json:"backdrop_path,omitempty"`
	ProfilePath  string `json:"profile_path,omitempty"`
	StillPath    string `json:"still_path,omitempty"`

	VoteAverage    float64 `json:"vote_average,omitempty"`
	VoteCount      int     `json:"vote_count,omitempty"`
	Popularity     float64 `json:"popularity,omitempty"`
	Runtime        int     `json:"runtime,omitempty"`
	EpisodeRunTime []int   `json:"episode_run_time,omitempty"`
	SeasonNumber   int     `json:"season_number,omitempty"`
	EpisodeNumber  int     `json:"episode_number,omitempty"`

	Genres              []NamedItem      `json:"genres,omitempty"`
	ProductionCompanies []NamedItem      `json:"production_companies,omitempty"`
	Networks            []NamedItem      `json:"networks,omitempty"`
	BelongsToCollection *CollectionRef   `json:"belongs_to_collection,omitempty"`
	Parts               []CollectionPart `json:"parts,omitempty"`

	Casts          *Credits        `json:"casts,omitempty"`
	Credits        *Credits        `json:"credits,omitempty"`
	GuestStars     []CastMember    `json:"guest_stars,omitempty"`
	Crew           []CrewMember    `json:"crew,omitempty"`
	Releases       *Releases       `json:"releases,omitempty"`
	ContentRatings *ContentRatings `json:"content_ratings,omitempty"`
	Keywords       *Keywords       `json:"keywords,omitempty"`
	Trailers       *Trailers       `json:"trailers,omitempty"`
	Videos         *Videos         `json:"videos,omitempty"`
	ExternalIDs    *ExternalIDs    `json:"external_ids,omitempty"`

	Images ImageCollection `json:"images"`
}

// normalize enforces the non-nil image list invariant.
func (d *Document) normalize() {
	d.Images.normalize()
}

// GetOriginalTitle prefers the tv field over the movie one.
func (d *Document) GetOriginalTitle() string {
	if d.OriginalName != "" {
		return d.OriginalName
	}
	return d.OriginalTitle
}

// GetTitle returns the display title for any kind.
func (d *Document) GetTitle() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Title != "" {
		return d.Title
	}
	return d.GetOriginalTitle()
}

// PremiereDateString returns whichever start date the kind carries.
func (d *Document) PremiereDateString() string {
	for _, s := range []string{d.ReleaseDate, d.FirstAirDate, d.AirDate, d.Birthday} {
		if s != "" {
			return s
		}
	}
	return ""
}

package tmdb

import (
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/moviedb/internal/provider"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

// toMetadata maps a document onto the host field set for its kind.
func toMetadata(spec kindSpec, doc *Document, country, imageBase string) *provider.Metadata {
	meta := &provider.Metadata{
		Kind:            spec.kind,
		Title:           doc.GetTitle(),
		OriginalTitle:   doc.GetOriginalTitle(),
		Overview:        *spec.summary(doc),
		Tagline:         doc.Tagline,
		HomePageURL:     doc.Homepage,
		CommunityRating: doc.VoteAverage,
		VoteCount:       doc.VoteCount,
		Status:          doc.Status,
		RuntimeMinutes:  doc.Runtime,
		SeasonNumber:    doc.SeasonNumber,
		EpisodeNumber:   doc.EpisodeNumber,
		PlaceOfBirth:    doc.PlaceOfBirth,
		ProviderIDs:     providerIDs(spec.kind, doc),
	}

	if meta.RuntimeMinutes == 0 && len(doc.EpisodeRunTime) > 0 {
		meta.RuntimeMinutes = doc.EpisodeRunTime[0]
	}

	if t, ok := parseDate(doc.PremiereDateString()); ok {
		meta.PremiereDate = &t
		meta.ProductionYear = t.Year()
	}
	end := doc.Deathday
	if spec.kind == provider.KindSeries && strings.EqualFold(doc.Status, "Ended") {
		end = doc.LastAirDate
	}
	if t, ok := parseDate(end); ok {
		meta.EndDate = &t
	}

	meta.Genres = names(doc.Genres)
	meta.Studios = names(doc.ProductionCompanies)
	if len(doc.Networks) > 0 {
		meta.Studios = names(doc.Networks)
	}
	if doc.Keywords != nil {
		meta.Tags = append(names(doc.Keywords.Keywords), names(doc.Keywords.Results)...)
	}

	switch spec.kind {
	case provider.KindSeries:
		meta.OfficialRating = contentRating(doc.ContentRatings, country)
	case provider.KindMovie, provider.KindMusicVideo, provider.KindTrailer:
		meta.OfficialRating = certification(doc.Releases, country)
	}

	meta.Trailers = trailers(doc)
	meta.People = people(doc, imageBase)
	return meta
}

func providerIDs(kind provider.EntityKind, doc *Document) map[string]string {
	ids := map[string]string{}
	if doc.ID != 0 {
		key := provider.IDTmdb
		if kind == provider.KindCollection {
			key = provider.IDTmdbCollection
		}
		ids[key] = strconv.Itoa(doc.ID)
	}
	if imdb := documentIMDbID(doc); imdb != "" {
		ids[provider.IDImdb] = imdb
	}
	if doc.ExternalIDs != nil && doc.ExternalIDs.TVDBID != 0 {
		ids[provider.IDTvdb] = strconv.Itoa(doc.ExternalIDs.TVDBID)
	}
	if doc.BelongsToCollection != nil && doc.BelongsToCollection.ID != 0 {
		ids[provider.IDTmdbCollection] = strconv.Itoa(doc.BelongsToCollection.ID)
	}
	return ids
}

// certification picks the movie rating for country, falling back to US.
// Ratings from other countries carry a country prefix.
func certification(releases *Releases, country string) string {
	if releases == nil {
		return ""
	}
	country = strings.ToUpper(country)
	for _, want := range []string{country, "US"} {
		if want == "" {
			continue
		}
		for _, c := range releases.Countries {
			if strings.EqualFold(c.Country, want) && c.Certification != "" {
				if want == "US" {
					return c.Certification
				}
				return want + "-" + c.Certification
			}
		}
	}
	return ""
}

func contentRating(ratings *ContentRatings, country string) string {
	if ratings == nil {
		return ""
	}
	country = strings.ToUpper(country)
	for _, want := range []string{country, "US"} {
		if want == "" {
			continue
		}
		for _, r := range ratings.Results {
			if strings.EqualFold(r.Country, want) && r.Rating != "" {
				return r.Rating
			}
		}
	}
	return ""
}

func trailers(doc *Document) []string {
	var out []string
	if doc.Trailers != nil {
		for _, t := range doc.Trailers.Youtube {
			if t.Source != "" {
				out = append(out, youtubeWatchURL+t.Source)
			}
		}
	}
	if doc.Videos != nil {
		for _, v := range doc.Videos.Results {
			if strings.EqualFold(v.Site, "YouTube") && strings.EqualFold(v.Type, "Trailer") && v.Key != "" {
				out = append(out, youtubeWatchURL+v.Key)
			}
		}
	}
	return out
}

func people(doc *Document, imageBase string) []provider.Person {
	credits := doc.Casts
	if credits == nil {
		credits = doc.Credits
	}

	var out []provider.Person
	addCast := func(cast []CastMember, personType string) {
		for _, c := range cast {
			if strings.TrimSpace(c.Name) == "" {
				continue
			}
			out = append(out, provider.Person{
				Name:        strings.TrimSpace(c.Name),
				Role:        c.Character,
				Type:        personType,
				SortOrder:   c.Order,
				ImageURL:    ImageURL(imageBase, c.ProfilePath),
				ProviderIDs: map[string]string{provider.IDTmdb: strconv.Itoa(c.ID)},
			})
		}
	}
	addCrew := func(crew []CrewMember) {
		for _, c := range crew {
			personType := crewType(c)
			if personType == "" || strings.TrimSpace(c.Name) == "" {
				continue
			}
			out = append(out, provider.Person{
				Name:        strings.TrimSpace(c.Name),
				Role:        c.Job,
				Type:        personType,
				ImageURL:    ImageURL(imageBase, c.ProfilePath),
				ProviderIDs: map[string]string{provider.IDTmdb: strconv.Itoa(c.ID)},
			})
		}
	}

	if credits != nil {
		addCast(credits.Cast, provider.PersonActor)
		addCrew(credits.Crew)
	}
	addCast(doc.GuestStars, provider.PersonGuest)
	addCrew(doc.Crew)
	return out
}

// crewType keeps the jobs the host models and drops the rest.
func crewType(c CrewMember) string {
	switch {
	case strings.EqualFold(c.Job, "Director"):
		return provider.PersonDirector
	case strings.EqualFold(c.Department, "Writing"):
		return provider.PersonWriter
	case strings.EqualFold(c.Job, "Producer"), strings.EqualFold(c.Job, "Executive Producer"):
		return provider.PersonProducer
	}
	return ""
}

func names(items []NamedItem) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if name := strings.TrimSpace(item.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// toRemoteImages turns the kind's image categories into host images.
// Backdrops carry no language so the host treats them as language neutral.
func toRemoteImages(spec kindSpec, images ImageCollection, imageBase string) []provider.RemoteImage {
	out := []provider.RemoteImage{}
	for _, imageType := range spec.imageTypes {
		category := spec.categories[imageType]
		for _, c := range SelectImages(images, category) {
			image := provider.RemoteImage{
				URL:             ImageURL(imageBase, c.FilePath),
				Width:           c.Width,
				Height:          c.Height,
				Language:        c.Language,
				CommunityRating: c.VoteAverage,
				VoteCount:       c.VoteCount,
				Type:            imageType,
				ProviderName:    ProviderName,
			}
			if category == CategoryBackdrop {
				image.Language = ""
			}
			out = append(out, image)
		}
	}
	return out
}

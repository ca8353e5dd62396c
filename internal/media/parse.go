// Package media derives lookup descriptions from release file and folder
// names such as "The.Matrix.1999.1080p.mkv" or "Breaking Bad/Season 01/S01E03.mkv".
package media

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Digital-Shane/moviedb/internal/provider"
)

var (
	// seasonRe matches season tokens like "Season 01", "S01", "s1" that start
	// the name or follow a separator.
	seasonRe = regexp.MustCompile(`(?i)(?:^|[\s._\-\[(])(?:s|season)\.? *(\d+)\b`)

	// seasonEpisodeRe matches combined season/episode forms: S01E02, 1x02, s1e2.
	seasonEpisodeRe = regexp.MustCompile(`(?i)\b[s]?(\d{1,2})[ex](\d{1,3})\b`)

	// dottedSeasonEpisodeRe matches compact dotted forms: 1.04, 01.4, 10.12.
	// The season is capped at two digits so a leading year like 2024.05 is
	// not taken for one.
	dottedSeasonEpisodeRe = regexp.MustCompile(`(?:^|[\s_\-\.])([0-9]{1,2})\.([0-9]{1,2})(?:[^0-9]|$)`)

	// yearRangeRe extracts a year or year range; only the first year is kept.
	yearRangeRe = regexp.MustCompile(`\b((19|20)\d{2})(?:[\s\-–—]+(?:19|20)\d{2})?\b`)

	// encodingTagsRe removes codec/resolution/source tags to isolate the title.
	encodingTagsRe = regexp.MustCompile(`(?i)\b(?:HD|HDR|DV|x265|x264|H\.?264|H\.?265|HEVC|AVC|AAC|AC3|DD|DTS|FLAC|MP3|WEB-?DL|BluRay|BDRip|DVDRip|HDTV|720p|1080p|2160p|4K|UHD|SDR|10bit|8bit|PROPER|REPACK|iNTERNAL|LiMiTED|UNRATED|EXTENDED|DiRECTORS?\.?CUT|THEATRICAL|COMPLETE|MULTI|DUAL|DUBBED|SUBBED|RETAIL|REMUX)\b`)

	// emptyBracketsRe matches brackets left behind once tags are removed.
	emptyBracketsRe = regexp.MustCompile(`[(\[{]\s*[)\]}]`)

	// videoRe matches video file extensions.
	videoRe = regexp.MustCompile(`(?i)\.(mp4|mkv|avi|mov|wmv|flv|webm|mpeg|mpg|m4v|3gp|vob|ts|mts|m2ts|rmvb|divx)$`)

	// subtitleRe matches subtitle extensions with an optional language code.
	subtitleRe = regexp.MustCompile(`(?i)(\.[a-z]{2,3}(?:[-_][a-z]{2,4})?)?\.(srt|sub|idx|ass|ssa|vtt|sup)$`)
)

// Parsed is what a file or folder name reveals about an entity.
type Parsed struct {
	Kind    provider.EntityKind
	Name    string
	Year    int
	Season  int
	Episode int
}

// LookupInfo converts p into a lookup. Seasons and episodes carry the title
// as the series name.
func (p Parsed) LookupInfo() provider.LookupInfo {
	info := provider.LookupInfo{Kind: p.Kind, Year: p.Year}
	switch p.Kind {
	case provider.KindSeason, provider.KindEpisode:
		info.SeriesName = p.Name
		info.SeasonNumber = p.Season
		info.EpisodeNumber = p.Episode
	default:
		info.Name = p.Name
	}
	return info
}

// IsVideo reports whether filename has a recognized video extension.
func IsVideo(filename string) bool {
	return videoRe.MatchString(filename)
}

// StripExtension removes a video or subtitle extension, including any
// subtitle language suffix.
func StripExtension(filename string) string {
	if loc := videoRe.FindStringIndex(filename); loc != nil {
		return filename[:loc[0]]
	}
	if loc := subtitleRe.FindStringIndex(filename); loc != nil {
		return filename[:loc[0]]
	}
	return filename
}

// ExtractNameAndYear splits a release name into a clean title and its year.
// Separators become spaces and encoding tags are dropped. A zero year means
// none was found.
func ExtractNameAndYear(name string) (string, int) {
	formatted := strings.NewReplacer(".", " ", "_", " ").Replace(name)
	year := 0

	if m := yearRangeRe.FindStringSubmatchIndex(formatted); m != nil {
		year, _ = strconv.Atoi(formatted[m[2]:m[3]])
		formatted = formatted[:m[0]]
	}

	formatted = encodingTagsRe.ReplaceAllString(formatted, "")
	formatted = emptyBracketsRe.ReplaceAllString(formatted, "")
	formatted = strings.Join(strings.Fields(formatted), " ")
	return strings.TrimRight(formatted, " ([{-"), year
}

// ParseSeasonEpisode extracts season and episode numbers from name.
func ParseSeasonEpisode(name string) (season, episode int, ok bool) {
	if m := seasonEpisodeRe.FindStringSubmatch(name); m != nil {
		season, _ = strconv.Atoi(m[1])
		episode, _ = strconv.Atoi(m[2])
		return season, episode, true
	}
	if m := dottedSeasonEpisodeRe.FindStringSubmatch(name); m != nil {
		season, _ = strconv.Atoi(m[1])
		episode, _ = strconv.Atoi(m[2])
		if season > 0 && episode > 0 {
			return season, episode, true
		}
	}
	return 0, 0, false
}

// ExtractSeasonNumber extracts a season number from a folder name such as
// "Season 02" or "Show S02".
func ExtractSeasonNumber(name string) (int, bool) {
	m := seasonRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// ParsePath parses a file or folder path. Episodes and season folders whose
// own name carries no title take it from the nearest parent folder that does.
func ParsePath(path string) Parsed {
	path = filepath.Clean(filepath.FromSlash(path))
	base := StripExtension(filepath.Base(path))
	parents := parentNames(path)

	if season, episode, ok := ParseSeasonEpisode(base); ok {
		name, year := titleBefore(base, seasonEpisodeIndex(base))
		if name == "" {
			name, year = titleFromParents(parents)
		}
		return Parsed{Kind: provider.KindEpisode, Name: name, Year: year, Season: season, Episode: episode}
	}

	if season, ok := ExtractSeasonNumber(base); ok {
		loc := seasonRe.FindStringIndex(base)
		name, year := titleBefore(base, loc[0])
		if name == "" {
			name, year = titleFromParents(parents)
		}
		return Parsed{Kind: provider.KindSeason, Name: name, Year: year, Season: season}
	}

	name, year := ExtractNameAndYear(base)
	return Parsed{Kind: provider.KindMovie, Name: name, Year: year}
}

func seasonEpisodeIndex(name string) int {
	idx := -1
	for _, re := range []*regexp.Regexp{seasonEpisodeRe, dottedSeasonEpisodeRe} {
		if loc := re.FindStringIndex(name); loc != nil && (idx == -1 || loc[0] < idx) {
			idx = loc[0]
		}
	}
	return idx
}

func titleBefore(name string, idx int) (string, int) {
	if idx <= 0 {
		return "", 0
	}
	return ExtractNameAndYear(strings.TrimRight(name[:idx], ".-_ "))
}

// titleFromParents walks up to three parent folders, skipping bare season
// folders.
func titleFromParents(parents []string) (string, int) {
	for i, parent := range parents {
		if i == 3 {
			break
		}
		if _, ok := ExtractSeasonNumber(parent); ok {
			if loc := seasonRe.FindStringIndex(parent); loc != nil {
				if name, year := titleBefore(parent, loc[0]); name != "" {
					return name, year
				}
			}
			continue
		}
		if name, year := ExtractNameAndYear(parent); name != "" {
			return name, year
		}
	}
	return "", 0
}

// parentNames lists the folder names above path, nearest first.
func parentNames(path string) []string {
	var names []string
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		name := filepath.Base(dir)
		if name == "." || name == string(filepath.Separator) {
			break
		}
		names = append(names, name)
		if filepath.Dir(dir) == dir {
			break
		}
	}
	return names
}

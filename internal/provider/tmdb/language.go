package tmdb

import "strings"

// NormalizeLanguage converts a host language preference into the form the
// service expects: region sub-tags are upper-cased and Spanish for Mexico is
// mapped to es-MX.
func NormalizeLanguage(language, country string) string {
	if language == "" {
		return language
	}

	if strings.EqualFold(language, "es") && strings.EqualFold(country, "mx") {
		return "es-MX"
	}

	parts := strings.Split(language, "-")
	if len(parts) == 2 {
		language = parts[0] + "-" + strings.ToUpper(parts[1])
	}
	return language
}

// ImageLanguages lists the languages images are requested in: the preferred
// language, its two letter prefix for xx-YY tags, untagged images ("null")
// and English unless English is already preferred.
func ImageLanguages(language, country string) []string {
	var languages []string

	if language != "" {
		language = NormalizeLanguage(language, country)
		languages = append(languages, language)

		// The service only matches two letter codes on images.
		if len(language) == 5 {
			languages = append(languages, language[:2])
		}
	}

	languages = append(languages, "null")

	if !strings.EqualFold(language, "en") {
		languages = append(languages, "en")
	}
	return languages
}

// GetImageLanguagesParam renders ImageLanguages as the include_image_language
// query value.
func GetImageLanguagesParam(language, country string) string {
	return strings.Join(ImageLanguages(language, country), ",")
}

// isEnglish reports whether a requested language needs no English fallback.
func isEnglish(language string) bool {
	return strings.EqualFold(language, "en")
}

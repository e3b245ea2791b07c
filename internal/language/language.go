package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// wordForms maps spelled-out language names to BCP 47 codes for detectors
// that report full words instead of codes.
var wordForms = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"vietnamese": "vi",
	"thai":       "th",
	"indonesian": "id",
	"turkish":    "tr",
}

func parse(code string) (language.Tag, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return language.Und, false
	}
	if mapped, ok := wordForms[code]; ok {
		code = mapped
	}
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return language.Und, false
	}
	// Parse is lenient: a well-formed but unknown subtag such as "not"
	// still yields a tag, at low confidence. Only accept bases Parse
	// actually recognized.
	if _, confidence := tag.Base(); confidence < language.High {
		return language.Und, false
	}
	return tag, true
}

// Normalize converts a detected language identifier (2-letter, 3-letter,
// BCP 47 tag, or spelled-out name) to its canonical ISO 639-1 base code.
// Returns empty string for unrecognized input.
func Normalize(code string) string {
	tag, ok := parse(code)
	if !ok {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

// DisplayName returns the English name of the language, or empty string for
// unrecognized input.
func DisplayName(code string) string {
	tag, ok := parse(code)
	if !ok {
		return ""
	}
	return display.English.Tags().Name(tag)
}

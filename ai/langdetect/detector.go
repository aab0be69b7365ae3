// Package langdetect identifies the language of text locally, without a
// model call. Providers consult it first and only ask the model when the
// local result is not confident.
package langdetect

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	// ErrUnsupportedLanguage indicates a language code with no local model.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrTooFewLanguages indicates fewer than two candidate languages were given.
	ErrTooFewLanguages = errors.New("at least two languages are required")
)

var supported = map[string]lingua.Language{
	"en": lingua.English,
	"zh": lingua.Chinese,
	"ja": lingua.Japanese,
	"ko": lingua.Korean,
	"fr": lingua.French,
	"de": lingua.German,
	"es": lingua.Spanish,
	"ru": lingua.Russian,
	"pt": lingua.Portuguese,
	"it": lingua.Italian,
}

// DefaultLanguages is the candidate set used when none is configured.
var DefaultLanguages = []string{"en", "zh", "ja", "ko", "fr", "de", "es", "ru"}

// minRelativeDistance makes ambiguous input report "not confident"
// instead of guessing.
const minRelativeDistance = 0.1

// Detector wraps a lingua detector restricted to a candidate set.
// The underlying models are loaded on first use. Safe for concurrent use.
type Detector struct {
	languages []lingua.Language
	once      sync.Once
	detector  lingua.LanguageDetector
}

// New creates a Detector for the given ISO 639-1 codes.
// With no codes, DefaultLanguages is used.
func New(codes ...string) (*Detector, error) {
	if len(codes) == 0 {
		codes = DefaultLanguages
	}

	languages := make([]lingua.Language, 0, len(codes))
	seen := make(map[lingua.Language]bool)
	for _, code := range codes {
		lang, ok := supported[strings.ToLower(strings.TrimSpace(code))]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
		}
		if !seen[lang] {
			seen[lang] = true
			languages = append(languages, lang)
		}
	}
	if len(languages) < 2 {
		return nil, ErrTooFewLanguages
	}

	return &Detector{languages: languages}, nil
}

// Detect returns the lowercase ISO 639-1 code of text's language.
// The boolean is false when text is blank or no language is a clear match.
func (d *Detector) Detect(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	d.once.Do(func() {
		d.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(d.languages...).
			WithMinimumRelativeDistance(minRelativeDistance).
			Build()
	})

	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

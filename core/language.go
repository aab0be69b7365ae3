package core

import "strings"

// languageAliases maps language names and common variants to ISO 639-1 codes.
var languageAliases = map[string]string{
	"english":    "en",
	"chinese":    "zh",
	"mandarin":   "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"french":     "fr",
	"german":     "de",
	"spanish":    "es",
	"russian":    "ru",
	"portuguese": "pt",
	"italian":    "it",
}

// NormalizeLanguage reduces a language tag to a lowercase primary code so
// that "zh-CN", "zh_cn", "Chinese" and "zh" all compare equal.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return ""
	}
	if code, ok := languageAliases[lang]; ok {
		return code
	}
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// SameLanguage reports whether two language tags name the same language.
func SameLanguage(a, b string) bool {
	na, nb := NormalizeLanguage(a), NormalizeLanguage(b)
	return na != "" && na == nb
}

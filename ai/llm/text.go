package llm

import (
	"regexp"
	"strings"
	"unicode"
)

// maxInputRunes bounds the text sent to the model for one call.
const maxInputRunes = 6000

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// cleanResponse strips reasoning blocks, markdown code fences and wrapping
// quotes from a model response.
func cleanResponse(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return trimQuotes(s)
}

func trimQuotes(s string) string {
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"「", "」"}} {
		if len(s) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}

// parseKeywords splits a model response into at most max distinct keywords.
// Models separate keywords with ASCII or CJK commas, enumeration marks or
// newlines, and sometimes number or bullet them.
func parseKeywords(s string, max int) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == ';' || r == '；' || r == '\n'
	})

	keywords := make([]string, 0, len(parts))
	seen := make(map[string]bool)
	for _, part := range parts {
		kw := strings.TrimLeftFunc(part, func(r rune) bool {
			return unicode.IsDigit(r) || unicode.IsSpace(r) || r == '.' || r == ')' || r == '-' || r == '*' || r == '•'
		})
		kw = trimQuotes(strings.TrimSpace(kw))
		kw = strings.TrimRight(kw, ".。")
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, kw)
		if max > 0 && len(keywords) == max {
			break
		}
	}
	return keywords
}

// parseLanguageCode extracts a language code from a model response such as
// "en", "EN.", "zh-CN" or "Language: fr".
func parseLanguageCode(s string) string {
	s = strings.ToLower(cleanResponse(s))
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	code := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-' && r != '_'
	})
	return code
}

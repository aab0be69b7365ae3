package enrich

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/enricher/core"
)

// PlainText strips markup from s and collapses whitespace. Text without
// any '<' is returned trimmed but otherwise untouched.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style, noscript, iframe").Remove()

	return strings.Join(strings.Fields(doc.Text()), " ")
}

// prepareText returns the text to enrich: the body as plain text, else the
// excerpt as plain text.
func prepareText(doc *core.Document) (string, error) {
	if text := PlainText(doc.Body); text != "" {
		return text, nil
	}
	if text := PlainText(doc.Excerpt); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("%w: %d: %w", ErrUnusableDocument, doc.Id, core.ErrEmptyContent)
}

// ResolveCategory maps a raw model answer onto the vocabulary. The first
// category that appears in the answer, ignoring case, wins. An answer that
// names none of them resolves to ai.CategoryOther.
func ResolveCategory(raw string, categories []string) string {
	answer := strings.ToLower(strings.TrimSpace(raw))
	if answer == "" {
		return otherCategory
	}
	for _, category := range categories {
		c := strings.ToLower(strings.TrimSpace(category))
		if c != "" && strings.Contains(answer, c) {
			return category
		}
	}
	return otherCategory
}

// cleanKeywords drops blanks and duplicates and caps the list at max.
func cleanKeywords(keywords []string, max int) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, min(len(keywords), max))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
		if len(out) == max {
			break
		}
	}
	return out
}

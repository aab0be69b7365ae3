package core

import (
	"testing"
	"time"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "url", content: "https://example.com/articles/1"},
		{name: "empty string", content: ""},
		{name: "long content", content: "https://example.com/a/much/longer/path/that/should/still/hash/consistently?q=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}

	t.Run("different content produces different IDs", func(t *testing.T) {
		if IDFromContent("https://example.com/1") == IDFromContent("https://example.com/2") {
			t.Error("IDFromContent() collided for different URLs")
		}
	})
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"zh-CN", "zh"},
		{"zh_cn", "zh"},
		{"Chinese", "zh"},
		{" english ", "en"},
		{"pt-BR", "pt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeLanguage(tt.in); got != tt.want {
				t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSameLanguage(t *testing.T) {
	if !SameLanguage("zh-cn", "chinese") {
		t.Error("expected zh-cn and chinese to match")
	}
	if SameLanguage("en", "fr") {
		t.Error("expected en and fr to differ")
	}
	if SameLanguage("", "") {
		t.Error("empty tags must never match")
	}
}

func TestDocumentReferenceTime(t *testing.T) {
	discovered := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	published := time.Date(2025, 3, 13, 22, 30, 0, 0, time.UTC)

	doc := &Document{DiscoveredAt: discovered}
	if got := doc.ReferenceTime(); !got.Equal(discovered) {
		t.Errorf("ReferenceTime() = %v, want DiscoveredAt %v", got, discovered)
	}

	doc.PublishedAt = published
	if got := doc.ReferenceTime(); !got.Equal(published) {
		t.Errorf("ReferenceTime() = %v, want PublishedAt %v", got, published)
	}
}

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentMUS_Skip(t *testing.T) {
	now := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	doc := Document{
		Id:           IDFromContent("https://example.com/a"),
		URL:          "https://example.com/a",
		Title:        "title",
		DiscoveredAt: now,
		Status:       StatusDone,
		Enrichment:   &Enrichment{Summary: "s", Keywords: []string{"a", "b"}, EnrichedAt: now},
	}

	buf := make([]byte, DocumentMUS.Size(doc)+1)
	n := DocumentMUS.Marshal(doc, buf)
	assert.Equal(t, len(buf)-1, n)

	skipped, err := DocumentMUS.Skip(buf)
	require.NoError(t, err)
	assert.Equal(t, n, skipped)
}

func TestCheckpointMUS_Skip(t *testing.T) {
	cp := Checkpoint{Name: "batch", CycleID: "c1", Attempted: 3, Succeeded: 2, Failed: 1}

	buf := make([]byte, CheckpointMUS.Size(cp))
	n := CheckpointMUS.Marshal(cp, buf)

	skipped, err := CheckpointMUS.Skip(buf)
	require.NoError(t, err)
	assert.Equal(t, n, skipped)
}

func TestTimeMUS(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
	}{
		{"zero", time.Time{}},
		{"utc", time.Date(2025, 3, 14, 8, 0, 0, 123000, time.UTC)},
		{"other zone", time.Date(2025, 3, 14, 8, 0, 0, 0, time.FixedZone("CST", 8*3600))},
		{"before epoch", time.Date(1969, 7, 20, 20, 17, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, TimeMUS.Size(tt.in))
			TimeMUS.Marshal(tt.in, buf)

			got, n, err := TimeMUS.Unmarshal(buf)
			require.NoError(t, err)
			assert.Equal(t, len(buf), n)
			assert.True(t, tt.in.Equal(got), "%v != %v", tt.in, got)
			assert.Equal(t, tt.in.IsZero(), got.IsZero())
		})
	}
}

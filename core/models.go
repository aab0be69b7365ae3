package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Documents use content-based IDs derived from their URL.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// EnrichmentStatus tracks where a document is in the enrichment lifecycle.
//
// Allowed transitions:
//
//	awaiting -> in_progress -> done | failed
//	failed   -> awaiting (manual retry)
type EnrichmentStatus string

const (
	StatusAwaiting   EnrichmentStatus = "awaiting"
	StatusInProgress EnrichmentStatus = "in_progress"
	StatusDone       EnrichmentStatus = "done"
	StatusFailed     EnrichmentStatus = "failed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []EnrichmentStatus{StatusAwaiting, StatusInProgress, StatusDone, StatusFailed}

func (s EnrichmentStatus) String() string {
	return string(s)
}

// Document is an externally sourced item awaiting or carrying AI enrichment.
// Raw fields are written by ingestion; Status and Enrichment are written
// only by the enrichment pipeline.
type Document struct {
	Id           ID
	URL          string
	Title        string
	Body         string
	Excerpt      string
	Source       string
	PublishedAt  time.Time // Timestamp reported by the source
	DiscoveredAt time.Time // When ingestion first stored the document
	Status       EnrichmentStatus
	Enrichment   *Enrichment // nil unless Status is StatusDone
	UpdatedAt    time.Time
}

// ReferenceTime is the timestamp used for day filtering: PublishedAt when
// the source reported one, DiscoveredAt otherwise.
func (d *Document) ReferenceTime() time.Time {
	if !d.PublishedAt.IsZero() {
		return d.PublishedAt
	}
	return d.DiscoveredAt
}

// Enrichment is the set of AI-generated fields attached to a document
// once processing succeeds.
type Enrichment struct {
	TranslatedTitle string
	Summary         string
	Language        string
	Keywords        []string
	Category        string
	EnrichedAt      time.Time
}

// Statistics summarizes document counts by enrichment status.
type Statistics struct {
	Total          int
	Awaiting       int
	InProgress     int
	Done           int
	Failed         int
	CompletionRate float64 // Done / Total * 100, rounded to two decimals
}

// Checkpoint records the outcome of the last finished batch cycle
// for a named processor.
type Checkpoint struct {
	Name       string
	CycleID    string
	StartedAt  time.Time
	FinishedAt time.Time
	Attempted  int
	Succeeded  int
	Failed     int
	Deferred   int
	UpdatedAt  time.Time
}

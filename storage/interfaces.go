package storage

import (
	"context"
	"time"

	"github.com/poiesic/enricher/core"
)

// DocumentRepository provides the document operations the pipeline needs.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// AddDocuments stores new documents.
	// Documents with ID=0 get IDFromContent(URL). DiscoveredAt defaults to
	// now and Status to StatusAwaiting. Documents whose ID already exists
	// are left untouched and omitted from the result.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// FetchAwaiting returns up to limit awaiting documents, oldest
	// DiscoveredAt first. Ties are broken by ID.
	FetchAwaiting(ctx context.Context, limit int) ([]*core.Document, error)

	// FetchAwaitingForDay is FetchAwaiting restricted to documents whose
	// ReferenceTime falls on the calendar day of day, in day's location.
	FetchAwaitingForDay(ctx context.Context, day time.Time, limit int) ([]*core.Document, error)

	// UpdateStatus sets a document's status and clears its enrichment.
	// StatusDone is rejected with ErrInvalidTransition; use UpdateEnrichment.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateStatus(ctx context.Context, id core.ID, status core.EnrichmentStatus) error

	// UpdateEnrichment stores the enrichment and sets StatusDone in one
	// atomic write. The enrichment must pass core.ValidateEnrichment.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateEnrichment(ctx context.Context, id core.ID, enrichment *core.Enrichment) error

	// CountByStatus returns the number of documents in each status.
	// Every status in core.AllStatuses is present in the map.
	CountByStatus(ctx context.Context) (map[core.EnrichmentStatus]int, error)

	// ResetFailed moves every failed document back to awaiting and
	// returns how many were moved.
	ResetFailed(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// CheckpointRepository persists batch cycle checkpoints.
type CheckpointRepository interface {
	// SaveCheckpoint stores cp under cp.Name, replacing any previous one.
	SaveCheckpoint(ctx context.Context, cp *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint stored under name,
	// or nil with no error if none exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)
}

// Repository is implemented by every storage backend.
type Repository interface {
	DocumentRepository
	CheckpointRepository
}

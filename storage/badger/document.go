package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/storage"
)

// resetChunkSize bounds how many documents one ResetFailed transaction moves.
const resetChunkSize = 500

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
//
// Each document is stored once under its ID and indexed by
// (status, DiscoveredAt, ID). Status changes move the index entry in the
// same transaction as the document write.
type DocumentRepository struct {
	backend *Backend
	now     func() time.Time
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Close is a no-op; the backend owns the database.
func (r *DocumentRepository) Close() error {
	return nil
}

// AddDocuments stores new documents, skipping IDs that already exist.
func (r *DocumentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	added := make([]*core.Document, 0, len(docs))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if err := prepareNewDocument(doc, r.now()); err != nil {
				return err
			}

			existing, err := r.readDocument(tx, doc.Id)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			if err := r.writeDocument(tx, doc); err != nil {
				return err
			}
			added = append(added, doc)
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return added, nil
}

// prepareNewDocument validates doc and fills in its defaults.
func prepareNewDocument(doc *core.Document, now time.Time) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	if doc.Id == 0 {
		doc.Id = core.IDFromContent(strings.TrimSpace(doc.URL))
	}
	if doc.DiscoveredAt.IsZero() {
		doc.DiscoveredAt = now
	}
	if doc.Status == "" {
		doc.Status = core.StatusAwaiting
	}
	if doc.Status == core.StatusDone && doc.Enrichment == nil {
		return fmt.Errorf("%w: document %d is done without enrichment", storage.ErrInvalidTransition, doc.Id)
	}
	if doc.Status != core.StatusDone {
		doc.Enrichment = nil
	}
	doc.UpdatedAt = now
	return nil
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readDocument(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FetchAwaiting returns up to limit awaiting documents, oldest first.
func (r *DocumentRepository) FetchAwaiting(ctx context.Context, limit int) ([]*core.Document, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	return r.scanStatus(ctx, core.StatusAwaiting, limit, nil)
}

// FetchAwaitingForDay returns up to limit awaiting documents whose
// reference time falls on day's calendar day, oldest discovered first.
func (r *DocumentRepository) FetchAwaitingForDay(ctx context.Context, day time.Time, limit int) ([]*core.Document, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	return r.scanStatus(ctx, core.StatusAwaiting, limit, func(doc *core.Document) bool {
		ref := doc.ReferenceTime()
		return !ref.Before(start) && ref.Before(end)
	})
}

// scanStatus walks the status index in order, collecting up to limit
// documents that pass keep (nil keeps all).
func (r *DocumentRepository) scanStatus(ctx context.Context, status core.EnrichmentStatus, limit int, keep func(*core.Document) bool) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeStatusPrefix(status)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid() && len(results) < limit; iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, ok := idFromStatusKey(iter.Item().Key())
			if !ok {
				continue
			}
			doc, err := r.readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc == nil {
				r.backend.logger.Warn("status index points at missing document", "document_id", id)
				continue
			}
			if keep != nil && !keep(doc) {
				continue
			}
			results = append(results, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateStatus sets the status and clears any enrichment.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id core.ID, status core.EnrichmentStatus) error {
	if err := core.ValidateStatus(status); err != nil {
		return err
	}
	if status == core.StatusDone {
		return fmt.Errorf("%w: done requires an enrichment", storage.ErrInvalidTransition)
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := r.readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := r.moveStatus(tx, doc, status); err != nil {
			return err
		}
		doc.Enrichment = nil
		doc.UpdatedAt = r.now()
		if err := r.writeDocument(tx, doc); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateEnrichment stores the enrichment and marks the document done.
func (r *DocumentRepository) UpdateEnrichment(ctx context.Context, id core.ID, enrichment *core.Enrichment) error {
	if err := core.ValidateEnrichment(enrichment); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := r.readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := r.moveStatus(tx, doc, core.StatusDone); err != nil {
			return err
		}
		e := *enrichment
		doc.Enrichment = &e
		doc.UpdatedAt = r.now()
		if err := r.writeDocument(tx, doc); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CountByStatus counts status index entries per status.
func (r *DocumentRepository) CountByStatus(ctx context.Context) (map[core.EnrichmentStatus]int, error) {
	counts := make(map[core.EnrichmentStatus]int, len(core.AllStatuses))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, status := range core.AllStatuses {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = makeStatusPrefix(status)
			iter := tx.NewIterator(opts)
			n := 0
			for iter.Rewind(); iter.Valid(); iter.Next() {
				n++
			}
			iter.Close()
			counts[status] = n
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// ResetFailed moves failed documents back to awaiting in chunks so a large
// backlog does not exceed badger's transaction size.
func (r *DocumentRepository) ResetFailed(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		failed, err := r.scanStatus(ctx, core.StatusFailed, resetChunkSize, nil)
		if err != nil {
			return total, err
		}
		if len(failed) == 0 {
			return total, nil
		}

		err = r.backend.WithTx(func(tx *badger.Txn) error {
			for _, doc := range failed {
				if err := r.moveStatus(tx, doc, core.StatusAwaiting); err != nil {
					return err
				}
				doc.Enrichment = nil
				doc.UpdatedAt = r.now()
				if err := r.writeDocument(tx, doc); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return total, err
		}
		total += len(failed)
	}
}

// moveStatus swaps doc's status index entry and sets doc.Status.
func (r *DocumentRepository) moveStatus(tx *badger.Txn, doc *core.Document, status core.EnrichmentStatus) error {
	if err := tx.Delete(makeStatusKey(doc.Status, doc.DiscoveredAt, doc.Id)); err != nil {
		return err
	}
	doc.Status = status
	return tx.Set(makeStatusKey(doc.Status, doc.DiscoveredAt, doc.Id), storage.MarshalID(doc.Id))
}

// writeDocument stores doc and its status index entry.
func (r *DocumentRepository) writeDocument(tx *badger.Txn, doc *core.Document) error {
	if err := tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
		return err
	}
	return tx.Set(makeStatusKey(doc.Status, doc.DiscoveredAt, doc.Id), storage.MarshalID(doc.Id))
}

// readDocument reads a document within a transaction.
// Returns nil, nil if the document doesn't exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}

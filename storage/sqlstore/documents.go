package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/storage"
)

const documentsTable = "documents"

var documentColumns = []string{
	"id", "url", "title", "body", "excerpt", "source",
	"published_at", "discovered_at", "status",
	"translated_title", "summary", "language", "keywords", "category", "enriched_at",
	"updated_at",
}

// insertColumns adds the derived day-filter column.
var insertColumns = append(slices.Clone(documentColumns), "reference_at")

// clearedEnrichment nulls every enrichment column.
var clearedEnrichment = map[string]any{
	"translated_title": nil,
	"summary":          nil,
	"language":         nil,
	"keywords":         nil,
	"category":         nil,
	"enriched_at":      nil,
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*core.Document, error) {
	var (
		doc                                               core.Document
		id, published, discovered, updated                int64
		status                                            string
		translated, summary, language, keywords, category sql.NullString
		enrichedAt                                        sql.NullInt64
	)
	err := row.Scan(
		&id, &doc.URL, &doc.Title, &doc.Body, &doc.Excerpt, &doc.Source,
		&published, &discovered, &status,
		&translated, &summary, &language, &keywords, &category, &enrichedAt,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	doc.Id = core.ID(uint64(id))
	doc.PublishedAt = fromMicros(published)
	doc.DiscoveredAt = fromMicros(discovered)
	doc.UpdatedAt = fromMicros(updated)
	doc.Status = core.EnrichmentStatus(status)

	if doc.Status == core.StatusDone {
		kw, err := storage.UnmarshalKeywords(keywords.String)
		if err != nil {
			return nil, err
		}
		doc.Enrichment = &core.Enrichment{
			TranslatedTitle: translated.String,
			Summary:         summary.String,
			Language:        language.String,
			Keywords:        kw,
			Category:        category.String,
			EnrichedAt:      fromMicros(enrichedAt.Int64),
		}
	}
	return &doc, nil
}

// AddDocuments inserts new documents, skipping IDs that already exist.
func (s *Store) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	added := make([]*core.Document, 0, len(docs))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, doc := range docs {
			if err := prepareNewDocument(doc, s.now()); err != nil {
				return err
			}

			insert := s.sb.Insert(documentsTable).
				Columns(insertColumns...).
				Suffix("ON CONFLICT (id) DO NOTHING")

			values := []any{
				int64(doc.Id), doc.URL, doc.Title, doc.Body, doc.Excerpt, doc.Source,
				toMicros(doc.PublishedAt), toMicros(doc.DiscoveredAt), string(doc.Status),
			}
			if e := doc.Enrichment; e != nil {
				keywords, err := storage.MarshalKeywords(e.Keywords)
				if err != nil {
					return err
				}
				values = append(values, e.TranslatedTitle, e.Summary, e.Language, keywords, e.Category, toMicros(e.EnrichedAt))
			} else {
				values = append(values, nil, nil, nil, nil, nil, nil)
			}
			values = append(values, toMicros(doc.UpdatedAt), toMicros(doc.ReferenceTime()))

			query, args, err := insert.Values(values...).ToSql()
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n > 0 {
				added = append(added, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// prepareNewDocument validates doc and fills in its defaults. Stored
// timestamps are truncated to microseconds, the column resolution.
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
	doc.DiscoveredAt = doc.DiscoveredAt.UTC().Truncate(time.Microsecond)
	if !doc.PublishedAt.IsZero() {
		doc.PublishedAt = doc.PublishedAt.UTC().Truncate(time.Microsecond)
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
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	query, args, err := s.sb.Select(documentColumns...).
		From(documentsTable).
		Where(sq.Eq{"id": int64(id)}).
		ToSql()
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return doc, err
}

// FetchAwaiting returns up to limit awaiting documents, oldest first.
func (s *Store) FetchAwaiting(ctx context.Context, limit int) ([]*core.Document, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	return s.queryDocuments(ctx, sq.Eq{"status": string(core.StatusAwaiting)}, limit)
}

// FetchAwaitingForDay returns up to limit awaiting documents whose
// reference time falls on day's calendar day.
func (s *Store) FetchAwaitingForDay(ctx context.Context, day time.Time, limit int) ([]*core.Document, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	return s.queryDocuments(ctx, sq.And{
		sq.Eq{"status": string(core.StatusAwaiting)},
		sq.GtOrEq{"reference_at": start.UnixMicro()},
		sq.Lt{"reference_at": end.UnixMicro()},
	}, limit)
}

func (s *Store) queryDocuments(ctx context.Context, where sq.Sqlizer, limit int) ([]*core.Document, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	query, args, err := s.sb.Select(documentColumns...).
		From(documentsTable).
		Where(where).
		OrderBy("discovered_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*core.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateStatus sets the status and clears any enrichment.
func (s *Store) UpdateStatus(ctx context.Context, id core.ID, status core.EnrichmentStatus) error {
	if err := core.ValidateStatus(status); err != nil {
		return err
	}
	if status == core.StatusDone {
		return fmt.Errorf("%w: done requires an enrichment", storage.ErrInvalidTransition)
	}

	update := s.sb.Update(documentsTable).
		Set("status", string(status)).
		SetMap(clearedEnrichment).
		Set("updated_at", toMicros(s.now())).
		Where(sq.Eq{"id": int64(id)})
	return s.execOne(ctx, update)
}

// UpdateEnrichment stores the enrichment and marks the document done in
// one statement.
func (s *Store) UpdateEnrichment(ctx context.Context, id core.ID, enrichment *core.Enrichment) error {
	if err := core.ValidateEnrichment(enrichment); err != nil {
		return err
	}
	keywords, err := storage.MarshalKeywords(enrichment.Keywords)
	if err != nil {
		return err
	}

	update := s.sb.Update(documentsTable).
		Set("status", string(core.StatusDone)).
		Set("translated_title", enrichment.TranslatedTitle).
		Set("summary", enrichment.Summary).
		Set("language", enrichment.Language).
		Set("keywords", keywords).
		Set("category", enrichment.Category).
		Set("enriched_at", toMicros(enrichment.EnrichedAt)).
		Set("updated_at", toMicros(s.now())).
		Where(sq.Eq{"id": int64(id)})
	return s.execOne(ctx, update)
}

// execOne runs an update that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, update sq.UpdateBuilder) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	query, args, err := update.ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountByStatus groups documents by status.
func (s *Store) CountByStatus(ctx context.Context) (map[core.EnrichmentStatus]int, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	query, args, err := s.sb.Select("status", "COUNT(*)").
		From(documentsTable).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[core.EnrichmentStatus]int, len(core.AllStatuses))
	for _, status := range core.AllStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[core.EnrichmentStatus(status)] = n
	}
	return counts, rows.Err()
}

// ResetFailed moves every failed document back to awaiting.
func (s *Store) ResetFailed(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	query, args, err := s.sb.Update(documentsTable).
		Set("status", string(core.StatusAwaiting)).
		SetMap(clearedEnrichment).
		Set("updated_at", toMicros(s.now())).
		Where(sq.Eq{"status": string(core.StatusFailed)}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

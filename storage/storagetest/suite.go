// Package storagetest holds the behavioral tests every storage.Repository
// implementation must pass.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty repository. The suite closes it.
type Factory func(t *testing.T) storage.Repository

// base is a fixed reference time; all suite timestamps are whole
// microseconds in UTC so every backend round-trips them exactly.
var base = time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

// NewDocument builds an awaiting document discovered offset after base.
func NewDocument(url string, offset time.Duration) *core.Document {
	return &core.Document{
		URL:          url,
		Title:        "Title for " + url,
		Body:         "Body text for " + url,
		Source:       "example",
		DiscoveredAt: base.Add(offset),
	}
}

// ValidEnrichment returns a complete enrichment.
func ValidEnrichment() *core.Enrichment {
	return &core.Enrichment{
		TranslatedTitle: "Translated title",
		Summary:         "A short summary.",
		Language:        "zh",
		Keywords:        []string{"chips", "sales"},
		Category:        "technology",
		EnrichedAt:      base.Add(time.Hour),
	}
}

// RunRepositoryTests runs the full contract suite against newRepo.
func RunRepositoryTests(t *testing.T, newRepo Factory) {
	t.Run("AddAndGet", func(t *testing.T) { testAddAndGet(t, newRepo(t)) })
	t.Run("FetchAwaitingOrder", func(t *testing.T) { testFetchAwaitingOrder(t, newRepo(t)) })
	t.Run("FetchAwaitingForDay", func(t *testing.T) { testFetchAwaitingForDay(t, newRepo(t)) })
	t.Run("UpdateStatus", func(t *testing.T) { testUpdateStatus(t, newRepo(t)) })
	t.Run("UpdateEnrichment", func(t *testing.T) { testUpdateEnrichment(t, newRepo(t)) })
	t.Run("CountByStatus", func(t *testing.T) { testCountByStatus(t, newRepo(t)) })
	t.Run("ResetFailed", func(t *testing.T) { testResetFailed(t, newRepo(t)) })
	t.Run("Checkpoints", func(t *testing.T) { testCheckpoints(t, newRepo(t)) })
}

func testAddAndGet(t *testing.T, repo storage.Repository) {
	defer repo.Close()
	ctx := context.Background()

	doc := NewDocument("https://example.com/a", 0)
	doc.PublishedAt = base.Add(-2 * time.Hour)

	added, err := repo.AddDocuments(ctx, doc)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, core.IDFromContent("https://example.com/a"), added[0].Id)
	assert.Equal(t, core.StatusAwaiting, added[0].Status)

	got, err := repo.GetDocument(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, doc.URL, got.URL)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Body, got.Body)
	assert.Equal(t, doc.Source, got.Source)
	assert.Equal(t, core.StatusAwaiting, got.Status)
	assert.True(t, doc.DiscoveredAt.Equal(got.DiscoveredAt), "discovered %v != %v", doc.DiscoveredAt, got.DiscoveredAt)
	assert.True(t, doc.PublishedAt.Equal(got.PublishedAt))
	assert.Nil(t, got.Enrichment)

	t.Run("duplicate skipped", func(t *testing.T) {
		dup := NewDocument("https://example.com/a", time.Hour)
		dup.Title = "changed"
		added, err := repo.AddDocuments(ctx, dup)
		require.NoError(t, err)
		assert.Empty(t, added)

		got, err := repo.GetDocument(ctx, core.IDFromContent("https://example.com/a"))
		require.NoError(t, err)
		assert.Equal(t, doc.Title, got.Title)
	})

	t.Run("discovered at defaults", func(t *testing.T) {
		doc := &core.Document{URL: "https://example.com/now", Title: "now"}
		added, err := repo.AddDocuments(ctx, doc)
		require.NoError(t, err)
		require.Len(t, added, 1)
		assert.False(t, added[0].DiscoveredAt.IsZero())
	})

	t.Run("invalid document", func(t *testing.T) {
		_, err := repo.AddDocuments(ctx, &core.Document{Title: "no url"})
		assert.ErrorIs(t, err, core.ErrInvalidDocument)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetDocument(ctx, core.ID(12345))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func testFetchAwaitingOrder(t *testing.T, repo storage.Repository) {
	defer repo.Close()
	ctx := context.Background()

	offsets := []time.Duration{4 * time.Minute, 1 * time.Minute, 3 * time.Minute, 0, 2 * time.Minute}
	for i, offset := range offsets {
		_, err := repo.AddDocuments(ctx, NewDocument(fmt.Sprintf("https://example.com/%d", i), offset))
		require.NoError(t, err)
	}

	docs, err := repo.FetchAwaiting(ctx, 3)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "https://example.com/3", docs[0].URL)
	assert.Equal(t, "https://example.com/1", docs[1].URL)
	assert.Equal(t, "https://example.com/4", docs[2].URL)

	docs, err = repo.FetchAwaiting(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, docs, 5)

	_, err = repo.FetchAwaiting(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func testFetchAwaitingForDay(t *testing.T, repo storage.Repository) {
	defer repo.Close()
	ctx := context.Background()

	today := NewDocument("https://example.com/today", 0)
	yesterday := NewDocument("https://example.com/yesterday", -24*time.Hour)
	// Discovered today but published yesterday: the published date wins.
	republished := NewDocument("https://example.com/republished", time.Hour)
	republished.PublishedAt = base.Add(-20 * time.Hour)
	lateToday := NewDocument("https://example.com/late", 15*time.Hour)

	_, err := repo.AddDocuments(ctx, today, yesterday, republished, lateToday)
	require.NoError(t, err)

	docs, err := repo.FetchAwaitingForDay(ctx, base.Add(3*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "https://example.com/today", docs[0].URL)
	assert.Equal(t, "https://example.com/late", docs[1].URL)

	docs, err = repo.FetchAwaitingForDay(ctx, base.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = repo.FetchAwaitingForDay(ctx, base, 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func testUpdateStatus(t *testing.T, repo storage.Repository) {
	defer repo.Close()
	ctx := context.Background()

	added, err := repo.AddDocuments(ctx, NewDocument("https://example.com/a", 0), NewDocument("https://example.com/b", time.Minute))
	require.NoError(t, err)
	id := added[0].Id

	require.NoError(t, repo.UpdateStatus(ctx, id, core.StatusInProgress))

	got, err := repo.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusInProgress, got.Status)

	awaiting, err := repo.FetchAwaiting(ctx, 10)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, added[1].Id, awaiting[0].Id)

	err = repo.UpdateStatus(ctx, id, core.StatusDone)
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)

	err = repo.UpdateStatus(ctx, id, core.EnrichmentStatus("pending"))
	assert.ErrorIs(t, err, core.ErrInvalidStatus)

	err = repo.UpdateStatus(ctx, core.ID(999), core.StatusFailed)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdateEnrichment(t *testing.T, repo storage.Repository) {
	defer repo.Close()
	ctx := context.Background()

	added, err := repo.AddDocuments(ctx, NewDocument("https://example.com/a", 0))
	require.NoError(t, err)
	id := added[0].Id

	require.NoError(t, repo.UpdateStatus(ctx, id, core.StatusInProgress))
	require.NoError(t, repo.UpdateEnrichment(ctx, id, ValidEnrichment()))

	got, err := repo.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusDone, got.Status)
	require.NotNil(t, got.Enrichment)
	assert.Equal(t, "Translated title", got.Enrichment.TranslatedTitle)
	assert.Equal(t, "A short summary.", got.Enrichment.Summary)
	assert.Equal(t, "zh", got.Enrichment.Language)
	assert.Equal(t, []string{"chips", "sales"}, got.Enrichment.Keywords)
	assert.Equal(t, "technology", got.Enrichment.Category)
	assert.True(t, base.Add(time.Hour).Equal(got.Enrichment.EnrichedAt))

	t.Run("incomplete enrichment rejected", func(t *testing.T) {
		e := ValidEnrichment()
		e.Keywords = nil
		err := repo.UpdateEnrichment(ctx, id, e)
		assert.ErrorIs(t, err, core.ErrInvalidEnrichment)
	})

	t.Run("failed clears enrichment", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, id, core.StatusFailed))
		got, err := repo.GetDocument(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.StatusFailed, got.Status)
		assert.Nil(t, got.Enrichment)
	})

	t.Run("missing", func(t *testing.T) {
		err := repo.UpdateEnrichment(ctx, core.ID(999), ValidEnrichment())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func testCountByStatus(t *testing.T, repo storage.Repository) {
	defer repo.Close()
	ctx := context.Background()

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	for _, status := range core.AllStatuses {
		assert.Contains(t, counts, status)
		assert.Zero(t, counts[status])
	}

	var ids []core.ID
	for i := range 4 {
		added, err := repo.AddDocuments(ctx, NewDocument(fmt.Sprintf("https://example.com/%d", i), time.Duration(i)*time.Minute))
		require.NoError(t, err)
		ids = append(ids, added[0].Id)
	}
	require.NoError(t, repo.UpdateStatus(ctx, ids[0], core.StatusInProgress))
	require.NoError(t, repo.UpdateEnrichment(ctx, ids[1], ValidEnrichment()))
	require.NoError(t, repo.UpdateStatus(ctx, ids[2], core.StatusFailed))

	counts, err = repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[core.StatusAwaiting])
	assert.Equal(t, 1, counts[core.StatusInProgress])
	assert.Equal(t, 1, counts[core.StatusDone])
	assert.Equal(t, 1, counts[core.StatusFailed])
}

func testResetFailed(t *testing.T, repo storage.Repository) {
	defer repo.Close()
	ctx := context.Background()

	var ids []core.ID
	for i := range 3 {
		added, err := repo.AddDocuments(ctx, NewDocument(fmt.Sprintf("https://example.com/%d", i), time.Duration(i)*time.Minute))
		require.NoError(t, err)
		ids = append(ids, added[0].Id)
	}
	require.NoError(t, repo.UpdateStatus(ctx, ids[0], core.StatusFailed))
	require.NoError(t, repo.UpdateStatus(ctx, ids[1], core.StatusFailed))

	n, err := repo.ResetFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	awaiting, err := repo.FetchAwaiting(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, awaiting, 3)

	n, err = repo.ResetFailed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testCheckpoints(t *testing.T, repo storage.Repository) {
	defer repo.Close()
	ctx := context.Background()

	cp, err := repo.LoadCheckpoint(ctx, "batch")
	require.NoError(t, err)
	assert.Nil(t, cp)

	saved := &core.Checkpoint{
		Name:       "batch",
		CycleID:    "first",
		StartedAt:  base,
		FinishedAt: base.Add(time.Minute),
		Attempted:  3,
		Succeeded:  2,
		Failed:     1,
	}
	require.NoError(t, repo.SaveCheckpoint(ctx, saved))

	saved.CycleID = "second"
	saved.Deferred = 7
	require.NoError(t, repo.SaveCheckpoint(ctx, saved))

	cp, err = repo.LoadCheckpoint(ctx, "batch")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "second", cp.CycleID)
	assert.Equal(t, 3, cp.Attempted)
	assert.Equal(t, 7, cp.Deferred)
	assert.True(t, base.Add(time.Minute).Equal(cp.FinishedAt))
	assert.False(t, cp.UpdatedAt.IsZero())
}

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/storage"
	"github.com/poiesic/enricher/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoc(url string, offset time.Duration) *core.Document {
	return storagetest.NewDocument(url, offset)
}

func TestRepositoryContract(t *testing.T) {
	storagetest.RunRepositoryTests(t, func(t *testing.T) storage.Repository {
		repo, err := NewMemoryRepository()
		require.NoError(t, err)
		return repo
	})
}

func TestDocumentRepository_StatusIndexFollowsDocument(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	repo := NewDocumentRepository(backend)
	ctx := context.Background()

	added, err := repo.AddDocuments(ctx, newDoc("https://example.com/a", 0))
	require.NoError(t, err)
	id := added[0].Id

	require.NoError(t, repo.UpdateStatus(ctx, id, core.StatusInProgress))
	require.NoError(t, repo.UpdateStatus(ctx, id, core.StatusFailed))
	require.NoError(t, repo.UpdateStatus(ctx, id, core.StatusAwaiting))
	require.NoError(t, repo.UpdateEnrichment(ctx, id, storagetest.ValidEnrichment()))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[core.EnrichmentStatus]int{
		core.StatusAwaiting:   0,
		core.StatusInProgress: 0,
		core.StatusDone:       1,
		core.StatusFailed:     0,
	}, counts)
}

func TestDocumentRepository_ResetFailedChunks(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	repo := NewDocumentRepository(backend)
	ctx := context.Background()

	total := resetChunkSize + 25
	docs := make([]*core.Document, 0, total)
	for i := range total {
		doc := newDoc("https://example.com/doc/"+time.Duration(i).String(), time.Duration(i)*time.Second)
		doc.Status = core.StatusFailed
		docs = append(docs, doc)
	}
	_, err = repo.AddDocuments(ctx, docs...)
	require.NoError(t, err)

	n, err := repo.ResetFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, n)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, counts[core.StatusAwaiting])
	assert.Zero(t, counts[core.StatusFailed])
}

func TestAddDocuments_DoneRequiresEnrichment(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	doc := newDoc("https://example.com/a", 0)
	doc.Status = core.StatusDone
	_, err = repo.AddDocuments(context.Background(), doc)
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)
}

func TestStatusKeyOrdering(t *testing.T) {
	earlier := makeStatusKey(core.StatusAwaiting, time.Unix(100, 0), 9)
	later := makeStatusKey(core.StatusAwaiting, time.Unix(200, 0), 1)
	assert.Less(t, string(earlier), string(later))

	id, ok := idFromStatusKey(later)
	require.True(t, ok)
	assert.Equal(t, core.ID(1), id)

	assert.NotEqual(t, makeStatusPrefix(core.StatusAwaiting), makeStatusPrefix(core.StatusFailed))
}

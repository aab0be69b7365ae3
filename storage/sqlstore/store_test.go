package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/storage"
	"github.com/poiesic/enricher/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := open(context.Background(), Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	return s
}

func TestRepositoryContract(t *testing.T) {
	storagetest.RunRepositoryTests(t, func(t *testing.T) storage.Repository {
		return openMemory(t)
	})
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: DriverSQLite})
	assert.ErrorIs(t, err, ErrDSNRequired)

	_, err = Open(context.Background(), Config{Driver: "mysql", DSN: "x"})
	assert.ErrorIs(t, err, storage.ErrUnsupportedBackend)
}

func TestOpen_FileReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "enricher.db")

	repo, err := Open(ctx, Config{Driver: DriverSQLite, DSN: path})
	require.NoError(t, err)
	_, err = repo.AddDocuments(ctx, storagetest.NewDocument("https://example.com/a", 0))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Schema creation is idempotent.
	repo, err = Open(ctx, Config{Driver: DriverSQLite, DSN: path})
	require.NoError(t, err)
	defer repo.Close()

	doc, err := repo.GetDocument(ctx, core.IDFromContent("https://example.com/a"))
	require.NoError(t, err)
	assert.Equal(t, core.StatusAwaiting, doc.Status)
}

func TestStore_Closed(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.FetchAwaiting(context.Background(), 5)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	err = s.UpdateStatus(context.Background(), 1, core.StatusFailed)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestStore_LargeIDsRoundTrip(t *testing.T) {
	s := openMemory(t)
	defer s.Close()
	ctx := context.Background()

	doc := storagetest.NewDocument("https://example.com/high-bit", 0)
	doc.Id = core.ID(1<<63 + 42)
	_, err := s.AddDocuments(ctx, doc)
	require.NoError(t, err)

	got, err := s.GetDocument(ctx, core.ID(1<<63+42))
	require.NoError(t, err)
	assert.Equal(t, doc.URL, got.URL)
}

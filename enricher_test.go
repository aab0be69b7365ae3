package enricher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/ai/mock"
	"github.com/poiesic/enricher/config"
	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/storage"
	"github.com/poiesic/enricher/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "data")
	cfg.Pipeline.Timezone = "UTC"
	return cfg
}

func seedDocuments(t *testing.T, repo storage.Repository, n int) {
	t.Helper()
	docs := make([]*core.Document, 0, n)
	for i := range n {
		docs = append(docs, &core.Document{
			URL:   fmt.Sprintf("https://example.com/news/%d", i),
			Title: fmt.Sprintf("Headline %d", i),
			Body:  "<p>Chip makers report <b>record</b> demand for accelerators.</p>",
		})
	}
	_, err := repo.AddDocuments(context.Background(), docs...)
	require.NoError(t, err)
}

func TestNewService(t *testing.T) {
	t.Run("opens configured badger storage", func(t *testing.T) {
		svc, err := NewService(context.Background(), testConfig(t))
		require.NoError(t, err)
		defer svc.Close()

		assert.NotNil(t, svc.Repository())
		assert.NotNil(t, svc.Processor())
		assert.NotNil(t, svc.Scheduler())
		assert.Equal(t, []ai.ProviderID{ai.ProviderOllama}, svc.Registry().Active())
		assert.False(t, svc.Scheduler().Status().Running)
	})

	t.Run("broken fallback provider is skipped", func(t *testing.T) {
		cfg := testConfig(t)
		enabled := true
		cfg.Providers["openai"] = &config.ProviderSettings{Enabled: &enabled}

		svc, err := NewService(context.Background(), cfg)
		require.NoError(t, err)
		defer svc.Close()

		assert.Equal(t, []ai.ProviderID{ai.ProviderOllama}, svc.Registry().Active())
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewService(context.Background(), nil)
		assert.ErrorIs(t, err, ErrConfigRequired)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Backend = "mongo"
		_, err := NewService(context.Background(), cfg)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("storage path is a file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.DSN = filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(cfg.Storage.DSN, []byte("test"), 0o644))

		svc, err := NewService(context.Background(), cfg)
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()

	repo, err := OpenRepository(ctx, config.StorageConfig{Backend: config.BackendSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	seedDocuments(t, repo, 2)
	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[core.StatusAwaiting])
	require.NoError(t, repo.Close())

	repo, err = OpenRepository(ctx, config.StorageConfig{Backend: config.BackendBadger, DSN: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = OpenRepository(ctx, config.StorageConfig{Backend: "mongo", DSN: "x"})
	assert.ErrorIs(t, err, storage.ErrUnsupportedBackend)
}

func TestDefaultFactories(t *testing.T) {
	factories := DefaultFactories()
	for _, id := range ai.KnownProviders() {
		assert.Contains(t, factories, id)
	}

	p, err := factories[ai.ProviderOllama](ai.DefaultProviderConfig(ai.ProviderOllama))
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOllama, p.ID())
	require.NoError(t, p.Close())

	cfg := ai.DefaultProviderConfig(ai.ProviderQianwen)
	_, err = factories[ai.ProviderQianwen](cfg)
	assert.ErrorIs(t, err, ai.ErrInvalidConfig, "missing API key")

	cfg.APIKey = "test-key"
	p, err = factories[ai.ProviderQianwen](cfg)
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderQianwen, p.ID())
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)

	failing := mock.NewFailingProvider(ai.ProviderOllama, fmt.Errorf("connection refused"))
	backup := mock.NewMockProvider(ai.ProviderOpenAI)
	backup.DetectLanguageFunc = func(context.Context, string) (string, error) { return "zh", nil }
	backup.CategorizeFunc = func(context.Context, string, string, []string) (string, error) {
		return "This article is about Technology.", nil
	}

	svc, err := NewService(ctx, testConfig(t), WithRepository(repo), WithProviders(failing, backup))
	require.NoError(t, err)
	defer svc.Close()

	seedDocuments(t, repo, 3)

	result, err := svc.Processor().ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Zero(t, result.Failed)

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Done)
	assert.Equal(t, 100.0, stats.CompletionRate)

	docs, err := repo.FetchAwaiting(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, docs)

	// Every capability fell through the failing default to the backup.
	assert.Equal(t, 3*5, failing.TotalCalls())
	assert.Equal(t, 3*5, backup.TotalCalls())

	doc, err := repo.GetDocument(ctx, core.IDFromContent("https://example.com/news/0"))
	require.NoError(t, err)
	require.NotNil(t, doc.Enrichment)
	assert.Equal(t, "zh", doc.Enrichment.Language)
	assert.Equal(t, "[en] Headline 0", doc.Enrichment.TranslatedTitle)
	assert.Equal(t, "technology", doc.Enrichment.Category)
	assert.NotContains(t, doc.Enrichment.Summary, "<p>")

	cp, err := svc.Processor().LastCycle(ctx)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, result.CycleID, cp.CycleID)
}

func TestService_SchedulerRunsBatches(t *testing.T) {
	ctx := context.Background()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Scheduler.ActiveInterval = 10 * time.Millisecond

	svc, err := NewService(ctx, cfg, WithRepository(repo), WithProviders(mock.NewMockProvider(ai.ProviderOllama)))
	require.NoError(t, err)
	defer svc.Close()

	seedDocuments(t, repo, 2)
	require.True(t, svc.Scheduler().Start())

	require.Eventually(t, func() bool {
		stats, err := svc.Statistics(ctx)
		return err == nil && stats.Done == 2
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, svc.Scheduler().Stop())
}

package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipeline(defaultID ai.ProviderID, order ...ai.ProviderID) *ai.PipelineConfig {
	return ai.NewPipelineConfig(
		ai.WithDefaultProvider(defaultID),
		ai.WithFallbackOrder(order...),
		ai.WithFallback(true),
	)
}

func mockFactory(built map[ai.ProviderID]*mock.MockProvider) Factory {
	return func(cfg ai.ProviderConfig) (ai.Provider, error) {
		p := mock.NewMockProvider(cfg.ID)
		built[cfg.ID] = p
		return p, nil
	}
}

func TestNewRegistry_SkipsUnusableProviders(t *testing.T) {
	built := make(map[ai.ProviderID]*mock.MockProvider)

	ollama := ai.DefaultProviderConfig(ai.ProviderOllama)
	openai := ai.DefaultProviderConfig(ai.ProviderOpenAI)
	openai.APIKey = "sk-test"
	qianwen := ai.DefaultProviderConfig(ai.ProviderQianwen)
	qianwen.APIKey = "dash-test"
	qianwen.Enabled = false
	huoshan := ai.DefaultProviderConfig(ai.ProviderHuoshan)
	huoshan.APIKey = "ark-test"

	factories := map[ai.ProviderID]Factory{
		ai.ProviderOllama: mockFactory(built),
		ai.ProviderOpenAI: func(ai.ProviderConfig) (ai.Provider, error) {
			return nil, errors.New("dial failed")
		},
		ai.ProviderQianwen: mockFactory(built),
		// no factory for huoshan
	}

	registry, err := NewRegistry(
		testPipeline(ai.ProviderOllama, ai.ProviderOllama, ai.ProviderOpenAI, ai.ProviderQianwen, ai.ProviderHuoshan),
		[]ai.ProviderConfig{ollama, openai, qianwen, huoshan},
		factories,
	)
	require.NoError(t, err)

	assert.Equal(t, []ai.ProviderID{ai.ProviderOllama}, registry.Active())
	assert.NotContains(t, built, ai.ProviderQianwen)

	_, ok := registry.Get(ai.ProviderOpenAI)
	assert.False(t, ok)
}

func TestNewRegistry_SkipsProviderSlowerThanDocument(t *testing.T) {
	built := make(map[ai.ProviderID]*mock.MockProvider)
	pipeline := testPipeline(ai.ProviderOllama, ai.ProviderOllama, ai.ProviderOpenAI)

	ollama := ai.DefaultProviderConfig(ai.ProviderOllama)
	openai := ai.DefaultProviderConfig(ai.ProviderOpenAI)
	openai.APIKey = "sk-test"
	openai.Timeout = pipeline.DocumentTimeout + time.Second

	registry, err := NewRegistry(pipeline, []ai.ProviderConfig{ollama, openai}, map[ai.ProviderID]Factory{
		ai.ProviderOllama: mockFactory(built),
		ai.ProviderOpenAI: mockFactory(built),
	})
	require.NoError(t, err)

	assert.Equal(t, []ai.ProviderID{ai.ProviderOllama}, registry.Active())
	assert.NotContains(t, built, ai.ProviderOpenAI, "factory is not called")
}

func TestNewRegistry_InvalidOption(t *testing.T) {
	_, err := NewStaticRegistry(testPipeline(ai.ProviderOllama), nil, WithHealthPoolSize(0))
	assert.ErrorIs(t, err, ErrInvalidPoolSize)

	registry, err := NewStaticRegistry(testPipeline(ai.ProviderOllama), nil, WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, registry)
}

func TestNewRegistry_NilPipeline(t *testing.T) {
	_, err := NewRegistry(nil, nil, nil)
	assert.ErrorIs(t, err, ErrPipelineConfigRequired)
}

func TestRegistry_Candidates(t *testing.T) {
	a := mock.NewMockProvider(ai.ProviderOllama)
	b := mock.NewMockProvider(ai.ProviderOpenAI)
	c := mock.NewMockProvider(ai.ProviderQianwen)

	t.Run("default first then fallback order", func(t *testing.T) {
		registry, err := NewStaticRegistry(
			testPipeline(ai.ProviderOpenAI, ai.ProviderOllama, ai.ProviderOpenAI, ai.ProviderQianwen),
			[]ai.Provider{a, b, c},
		)
		require.NoError(t, err)
		assert.Equal(t, []ai.ProviderID{ai.ProviderOpenAI, ai.ProviderOllama, ai.ProviderQianwen}, registry.Candidates())
	})

	t.Run("unregistered ids skipped", func(t *testing.T) {
		registry, err := NewStaticRegistry(
			testPipeline(ai.ProviderHuoshan, ai.ProviderHuoshan, ai.ProviderQianwen, ai.ProviderOllama),
			[]ai.Provider{a, c},
		)
		require.NoError(t, err)
		assert.Equal(t, []ai.ProviderID{ai.ProviderQianwen, ai.ProviderOllama}, registry.Candidates())
	})

	t.Run("fallback disabled", func(t *testing.T) {
		pipeline := testPipeline(ai.ProviderOllama, ai.ProviderOllama, ai.ProviderOpenAI)
		pipeline.EnableFallback = false
		registry, err := NewStaticRegistry(pipeline, []ai.Provider{a, b})
		require.NoError(t, err)
		assert.Equal(t, []ai.ProviderID{ai.ProviderOllama}, registry.Candidates())
	})
}

func TestRegistry_SwitchDefault(t *testing.T) {
	a := mock.NewMockProvider(ai.ProviderOllama)
	b := mock.NewMockProvider(ai.ProviderOpenAI)

	registry, err := NewStaticRegistry(
		testPipeline(ai.ProviderOllama, ai.ProviderOllama, ai.ProviderOpenAI),
		[]ai.Provider{a, b},
	)
	require.NoError(t, err)

	require.NoError(t, registry.SwitchDefault(ai.ProviderOpenAI))
	assert.Equal(t, ai.ProviderOpenAI, registry.Default())
	assert.Equal(t, []ai.ProviderID{ai.ProviderOpenAI, ai.ProviderOllama}, registry.Candidates())

	err = registry.SwitchDefault(ai.ProviderHuoshan)
	assert.ErrorIs(t, err, ErrProviderNotFound)
	assert.Equal(t, ai.ProviderOpenAI, registry.Default())
}

func TestRegistry_HealthCheckAll(t *testing.T) {
	healthy := mock.NewMockProvider(ai.ProviderOllama)
	broken := mock.NewFailingProvider(ai.ProviderOpenAI, errors.New("connection refused"))
	other := mock.NewMockProvider(ai.ProviderQianwen)

	registry, err := NewStaticRegistry(
		testPipeline(ai.ProviderOllama, ai.ProviderOllama, ai.ProviderOpenAI, ai.ProviderQianwen),
		[]ai.Provider{healthy, broken, other},
		WithHealthPoolSize(2),
	)
	require.NoError(t, err)

	results := registry.HealthCheckAll(context.Background())
	require.Len(t, results, 3)

	assert.Equal(t, ai.ProviderOllama, results[0].Provider)
	assert.True(t, results[0].Healthy())
	assert.Equal(t, ai.ProviderOpenAI, results[1].Provider)
	assert.False(t, results[1].Healthy())
	assert.Equal(t, "connection refused", results[1].Error)
	assert.True(t, results[2].Healthy())
}

func TestRegistry_Close(t *testing.T) {
	a := mock.NewMockProvider(ai.ProviderOllama)
	b := mock.NewMockProvider(ai.ProviderOpenAI)

	registry, err := NewStaticRegistry(testPipeline(ai.ProviderOllama), []ai.Provider{a, b})
	require.NoError(t, err)

	require.NoError(t, registry.Close())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

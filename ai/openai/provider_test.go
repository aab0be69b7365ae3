package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/enricher/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, content string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
}

func testConfig(baseURL string) ai.ProviderConfig {
	cfg := ai.DefaultProviderConfig(ai.ProviderOpenAI)
	cfg.BaseURL = baseURL
	cfg.APIKey = "sk-test"
	cfg.MaxRetries = 2
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestNewProvider_Validation(t *testing.T) {
	cfg := ai.DefaultProviderConfig(ai.ProviderOpenAI)
	_, err := NewProvider(cfg)
	assert.ErrorIs(t, err, ai.ErrInvalidConfig, "api key is required")
}

func TestProvider_Summarize(t *testing.T) {
	var hits atomic.Int32
	server := chatServer(t, http.StatusOK, "A concise summary.", &hits)
	defer server.Close()

	provider, err := NewProvider(testConfig(server.URL))
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, ai.ProviderOpenAI, provider.ID())

	summary, err := provider.Summarize(context.Background(), "A long article body.", 400)
	require.NoError(t, err)
	assert.Equal(t, "A concise summary.", summary)
	assert.Equal(t, int32(1), hits.Load())
}

func TestProvider_ServerError(t *testing.T) {
	var hits atomic.Int32
	server := chatServer(t, http.StatusServiceUnavailable, "", &hits)
	defer server.Close()

	provider, err := NewProvider(testConfig(server.URL))
	require.NoError(t, err)

	_, err = provider.ExtractKeywords(context.Background(), "text", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai extract_keywords")
	assert.Equal(t, int32(2), hits.Load(), "adapter retries up to MaxRetries")
}

func TestProvider_HealthCheck(t *testing.T) {
	var hits atomic.Int32
	server := chatServer(t, http.StatusOK, "pong", &hits)
	defer server.Close()

	provider, err := NewProvider(testConfig(server.URL))
	require.NoError(t, err)

	status := provider.HealthCheck(context.Background())
	assert.True(t, status.Healthy(), status.Error)
	assert.Equal(t, "gpt-4o-mini", status.Model)
}

func TestProvider_CompatibleVendors(t *testing.T) {
	var hits atomic.Int32
	server := chatServer(t, http.StatusOK, "科技", &hits)
	defer server.Close()

	for _, id := range []ai.ProviderID{ai.ProviderQianwen, ai.ProviderHuoshan} {
		t.Run(string(id), func(t *testing.T) {
			cfg := ai.DefaultProviderConfig(id)
			cfg.BaseURL = server.URL
			cfg.APIKey = "sk-test"

			provider, err := NewProvider(cfg)
			require.NoError(t, err)
			assert.Equal(t, id, provider.ID())

			raw, err := provider.Categorize(context.Background(), "标题", "正文", []string{"科技", "体育"})
			require.NoError(t, err)
			assert.Equal(t, "科技", raw)
		})
	}
}

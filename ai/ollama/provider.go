// Package ollama provides the ai.Provider adapter for a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/ai/llm"
	"github.com/tmc/langchaingo/llms/ollama"
)

// NewProvider creates an ai.Provider backed by Ollama's chat API.
// Health checks list the installed models via /api/tags rather than
// running a generation, so they stay cheap on a busy server.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(config ai.ProviderConfig, opts ...llm.Option) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// ollama.WithServerURL exits the process on a bad URL, so parse first.
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: ollama: invalid BaseURL: %w", ai.ErrInvalidConfig, err)
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	client, err := ollama.New(
		ollama.WithServerURL(config.BaseURL),
		ollama.WithModel(config.Model),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	logger := slog.Default().With("component", "ollama-provider")
	logger.Debug("provider created", "base_url", config.BaseURL, "model", config.Model)

	opts = append([]llm.Option{
		llm.WithLogger(logger),
		llm.WithHealthProbe(tagsProbe(httpClient, config.BaseURL)),
	}, opts...)
	return llm.NewProvider(config, client, opts...)
}

// tagsProbe returns a probe that lists installed models.
func tagsProbe(client *http.Client, baseURL string) llm.HealthProbe {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ollama /api/tags returned status %d", resp.StatusCode)
		}
		return nil
	}
}

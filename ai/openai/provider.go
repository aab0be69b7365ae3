// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/ai/llm"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewProvider creates an ai.Provider for OpenAI or an OpenAI-compatible
// vendor. qianwen (DashScope compatible mode) and huoshan (Volcengine Ark)
// speak the same chat completions protocol and differ only in base URL,
// model name and key.
//
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not a concrete type) to enforce abstraction.
func NewProvider(config ai.ProviderConfig, opts ...llm.Option) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
		openai.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", config.ID, err)
	}

	logger := slog.Default().With("component", "openai-provider", "provider", string(config.ID))
	logger.Debug("provider created", "base_url", config.BaseURL, "model", config.Model)

	opts = append([]llm.Option{llm.WithLogger(logger)}, opts...)
	return llm.NewProvider(config, client, opts...)
}

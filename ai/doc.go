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


// Package ai provides abstractions for the AI backends used by the enricher.
//
// This package defines the provider contract and its configuration types.
// The enrichment pipeline depends on these abstractions only, so backends
// can be swapped or chained without touching orchestration code.
//
// # Provider Contract
//
// Every backend implements Provider, which embeds Capabilities:
//
//   - Summarize: condense text to a target length
//   - Translate: translate text into the target language
//   - DetectLanguage: identify the language of text
//   - ExtractKeywords: return a bounded, ordered keyword list
//   - Categorize: choose a category from a closed vocabulary
//   - HealthCheck: probe the backend and report latency
//
// # Implementation Packages
//
//   - ai/llm: capability implementation over any langchaingo llms.Model
//   - ai/openai: OpenAI and OpenAI-compatible vendors (qianwen, huoshan)
//   - ai/ollama: local Ollama server
//   - ai/langdetect: local language detection used before falling back to a model
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Public adapter constructors return the ai.Provider interface. The mock
// constructor returns the concrete type so tests can inject behavior and
// assert call counts.
//
// # Usage Example
//
//	cfg := ai.DefaultProviderConfig(ai.ProviderOllama)
//	provider, err := ollama.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	summary, err := provider.Summarize(ctx, text, 400)
//
// Retrying transient failures is the adapter's job (see RetryWithBackoff);
// the fallback executor in package providers moves on to the next provider
// instead of retrying.
package ai

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


// Package llm implements the ai.Provider capabilities on top of any
// langchaingo llms.Model. Vendor packages (ai/openai, ai/ollama) only build
// the model client and a health probe; prompting, response parsing and
// retries live here.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/core"
	"github.com/tmc/langchaingo/llms"
)

// ErrModelRequired is returned when NewProvider is given a nil model.
var ErrModelRequired = errors.New("llm model is required")

// LanguageDetector detects language locally before a model is consulted.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

// HealthProbe checks that the backend is reachable.
type HealthProbe func(ctx context.Context) error

// Provider implements ai.Provider using a langchaingo model.
type Provider struct {
	config   ai.ProviderConfig
	model    llms.Model
	detector LanguageDetector
	probe    HealthProbe
	logger   *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithLanguageDetector sets a local detector consulted before the model.
func WithLanguageDetector(d LanguageDetector) Option {
	return func(p *Provider) {
		p.detector = d
	}
}

// WithHealthProbe replaces the default probe, which is a minimal generation.
func WithHealthProbe(probe HealthProbe) Option {
	return func(p *Provider) {
		p.probe = probe
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider creates a Provider around model. The config supplies the
// provider id, model name, temperature and retry policy.
func NewProvider(config ai.ProviderConfig, model llms.Model, opts ...Option) (*Provider, error) {
	if model == nil {
		return nil, ErrModelRequired
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}

	p := &Provider{
		config: config,
		model:  model,
		logger: slog.Default().With("component", "llm-provider", "provider", string(config.ID)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.probe == nil {
		p.probe = p.generationProbe
	}
	return p, nil
}

// ID returns the provider id.
func (p *Provider) ID() ai.ProviderID {
	return p.config.ID
}

// Summarize condenses text to at most targetLength characters.
func (p *Provider) Summarize(ctx context.Context, text string, targetLength int) (string, error) {
	summary, err := p.generate(ctx, ai.CapabilitySummarize, buildSummarizePrompt(targetLength), truncateRunes(text, maxInputRunes))
	if err != nil {
		return "", err
	}
	return truncateRunes(summary, targetLength), nil
}

// Translate translates text into targetLang. Matching languages return
// text unchanged without a model call.
func (p *Provider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if core.SameLanguage(sourceLang, targetLang) {
		return text, nil
	}
	return p.generate(ctx, ai.CapabilityTranslate, buildTranslatePrompt(sourceLang, targetLang), truncateRunes(text, maxInputRunes))
}

// DetectLanguage returns the ISO 639-1 code of text. The local detector is
// tried first; the model is asked only when it is not confident.
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	if p.detector != nil {
		if lang, ok := p.detector.Detect(text); ok {
			p.logger.Debug("language detected locally", "language", lang)
			return lang, nil
		}
	}

	response, err := p.generate(ctx, ai.CapabilityDetectLanguage, detectLanguageSystemPrompt, truncateRunes(text, 1000))
	if err != nil {
		return "", err
	}
	code := core.NormalizeLanguage(parseLanguageCode(response))
	if code == "" {
		return "", fmt.Errorf("%w: no language code in %q", ai.ErrEmptyResponse, response)
	}
	return code, nil
}

// ExtractKeywords returns at most max keywords parsed from a comma-separated
// model response.
func (p *Provider) ExtractKeywords(ctx context.Context, text string, max int) ([]string, error) {
	response, err := p.generate(ctx, ai.CapabilityExtractKeywords, buildKeywordsPrompt(max), truncateRunes(text, maxInputRunes))
	if err != nil {
		return nil, err
	}
	keywords := parseKeywords(response, max)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: no keywords in %q", ai.ErrEmptyResponse, response)
	}
	return keywords, nil
}

// Categorize returns the model's raw category answer.
func (p *Provider) Categorize(ctx context.Context, title, text string, categories []string) (string, error) {
	input := buildCategorizeInput(title, truncateRunes(text, maxInputRunes))
	return p.generate(ctx, ai.CapabilityCategorize, buildCategorizePrompt(categories), input)
}

// HealthCheck runs the health probe and reports its latency.
func (p *Provider) HealthCheck(ctx context.Context) ai.HealthStatus {
	start := time.Now()
	err := p.probe(ctx)
	status := ai.HealthStatus{
		Provider:  p.config.ID,
		Status:    ai.HealthHealthy,
		Model:     p.config.Model,
		Latency:   time.Since(start),
		CheckedAt: time.Now(),
	}
	if err != nil {
		status.Status = ai.HealthUnhealthy
		status.Error = err.Error()
		p.logger.Warn("health check failed", "err", err)
	}
	return status
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing provider")
	return nil
}

// generate sends one system/user exchange and returns the cleaned response,
// retrying per the provider's retry policy.
func (p *Provider) generate(ctx context.Context, capability ai.Capability, systemPrompt, input string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	}

	var result string
	start := time.Now()
	err := ai.RetryWithBackoff(ctx, func(ctx context.Context) error {
		response, err := p.model.GenerateContent(ctx, content, llms.WithTemperature(p.config.Temperature))
		if err != nil {
			return err
		}
		if len(response.Choices) < 1 {
			return ai.ErrEmptyResponse
		}
		text := cleanResponse(response.Choices[0].Content)
		if text == "" {
			return ai.ErrEmptyResponse
		}
		result = text
		return nil
	}, p.config.MaxRetries, p.config.RetryDelay)
	if err != nil {
		p.logger.Error("generation failed", "capability", capability, "elapsed", time.Since(start), "err", err)
		return "", fmt.Errorf("%s %s: %w", p.config.ID, capability, err)
	}

	p.logger.Debug("generation complete", "capability", capability, "elapsed", time.Since(start))
	return result, nil
}

// generationProbe asks for a single token without retries.
func (p *Provider) generationProbe(ctx context.Context) error {
	_, err := llms.GenerateFromSinglePrompt(ctx, p.model, "ping", llms.WithMaxTokens(1))
	return err
}

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


package ai

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/enricher/core"
)

// ProviderConfig holds configuration for a single AI backend.
type ProviderConfig struct {
	// ID selects the adapter implementation.
	ID ProviderID

	// Enabled controls whether the provider is registered at startup.
	Enabled bool

	// BaseURL is the API root of the backend.
	// Example: "http://localhost:11434" for Ollama, "https://api.openai.com/v1" for OpenAI
	BaseURL string

	// Model is the model identifier to use.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	Model string

	// APIKey is the bearer credential. Not used by Ollama.
	APIKey string

	// Timeout bounds a single HTTP call to the backend.
	// Default: 60s
	Timeout time.Duration

	// MaxRetries is the number of attempts the adapter makes per call.
	// Default: 3
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff between attempts.
	// Default: 1s
	RetryDelay time.Duration

	// Temperature is passed to the model on every generation.
	// Default: 0.3
	Temperature float64
}

// providerDefaults holds per-vendor endpoint and model defaults.
var providerDefaults = map[ProviderID]struct {
	baseURL string
	model   string
}{
	ProviderOllama:  {baseURL: "http://localhost:11434", model: "qwen2.5:3b"},
	ProviderOpenAI:  {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	ProviderQianwen: {baseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", model: "qwen-turbo"},
	ProviderHuoshan: {baseURL: "https://ark.cn-beijing.volces.com/api/v3", model: "doubao-lite-32k"},
}

// KnownProviders returns the provider ids with built-in defaults.
func KnownProviders() []ProviderID {
	return []ProviderID{ProviderOllama, ProviderOpenAI, ProviderQianwen, ProviderHuoshan}
}

// RequiresAPIKey reports whether the provider needs a credential.
func RequiresAPIKey(id ProviderID) bool {
	return id != ProviderOllama
}

// DefaultProviderConfig returns an enabled configuration for id with vendor defaults.
func DefaultProviderConfig(id ProviderID) ProviderConfig {
	d := providerDefaults[id]
	return ProviderConfig{
		ID:          id,
		Enabled:     true,
		BaseURL:     d.baseURL,
		Model:       d.model,
		Timeout:     60 * time.Second,
		MaxRetries:  3,
		RetryDelay:  time.Second,
		Temperature: 0.3,
	}
}

// Normalize fills vendor defaults for empty endpoint and model fields and
// canonicalizes the id.
func (c *ProviderConfig) Normalize() {
	c.ID = ProviderID(strings.ToLower(strings.TrimSpace(string(c.ID))))
	if d, ok := providerDefaults[c.ID]; ok {
		if c.BaseURL == "" {
			c.BaseURL = d.baseURL
		}
		if c.Model == "" {
			c.Model = d.model
		}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
}

// Validate checks that the provider configuration is usable.
// It normalizes the configuration first.
func (c *ProviderConfig) Validate() error {
	c.Normalize()

	if c.ID == "" {
		return fmt.Errorf("%w: provider id is required", ErrInvalidConfig)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: %s: BaseURL is required", ErrInvalidConfig, c.ID)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: %s: Model is required", ErrInvalidConfig, c.ID)
	}
	if c.Enabled && RequiresAPIKey(c.ID) && c.APIKey == "" {
		return fmt.Errorf("%w: %s: APIKey is required", ErrInvalidConfig, c.ID)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: %s: Timeout must be positive", ErrInvalidConfig, c.ID)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: %s: MaxRetries must be at least 1", ErrInvalidConfig, c.ID)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: %s: RetryDelay cannot be negative", ErrInvalidConfig, c.ID)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %s: Temperature must be between 0 and 2", ErrInvalidConfig, c.ID)
	}
	return nil
}

// CheckTimeout reports whether a single call can finish inside one
// document's deadline.
func (c *ProviderConfig) CheckTimeout(documentTimeout time.Duration) error {
	if documentTimeout > 0 && c.Timeout > documentTimeout {
		return fmt.Errorf("%w: %s: timeout %s exceeds document timeout %s", ErrInvalidConfig, c.ID, c.Timeout, documentTimeout)
	}
	return nil
}

// PipelineConfig holds the enrichment pipeline settings shared by the
// provider registry, the orchestrator and the batch processor.
type PipelineConfig struct {
	// DefaultProvider is tried first for every capability.
	DefaultProvider ProviderID

	// FallbackOrder lists providers tried after the default, in order.
	FallbackOrder []ProviderID

	// EnableFallback turns the fallback chain on. When false only the
	// default provider is tried.
	EnableFallback bool

	// BatchSize is the number of documents fetched per cycle.
	// Default: 50
	BatchSize int

	// DocumentTimeout is the overall deadline for enriching one document.
	// Default: 120s
	DocumentTimeout time.Duration

	// BatchTimeout is the wall-clock budget for one batch cycle.
	// Zero derives it as DocumentTimeout times the number of documents.
	BatchTimeout time.Duration

	// SummaryLength is the target summary length in characters.
	// Default: 400
	SummaryLength int

	// MaxKeywords caps the keyword list.
	// Default: 5
	MaxKeywords int

	// TargetLanguage is the language titles are translated into.
	// Default: "en"
	TargetLanguage string

	// Categories is the closed category vocabulary, in match priority order.
	Categories []string

	// CallPacing is an optional pause between the capability calls for one
	// document. Default: 0 (no pacing)
	CallPacing time.Duration
}

// PipelineOption is a functional option for configuring a PipelineConfig.
type PipelineOption func(*PipelineConfig)

// WithDefaultProvider sets the provider tried first.
func WithDefaultProvider(id ProviderID) PipelineOption {
	return func(c *PipelineConfig) {
		c.DefaultProvider = id
	}
}

// WithFallbackOrder sets the ordered fallback list.
func WithFallbackOrder(ids ...ProviderID) PipelineOption {
	return func(c *PipelineConfig) {
		c.FallbackOrder = slices.Clone(ids)
	}
}

// WithFallback enables or disables the fallback chain.
func WithFallback(enabled bool) PipelineOption {
	return func(c *PipelineConfig) {
		c.EnableFallback = enabled
	}
}

// WithBatchSize sets the number of documents per cycle.
func WithBatchSize(size int) PipelineOption {
	return func(c *PipelineConfig) {
		c.BatchSize = size
	}
}

// WithDocumentTimeout sets the per-document deadline.
func WithDocumentTimeout(d time.Duration) PipelineOption {
	return func(c *PipelineConfig) {
		c.DocumentTimeout = d
	}
}

// WithBatchTimeout overrides the derived per-batch deadline.
func WithBatchTimeout(d time.Duration) PipelineOption {
	return func(c *PipelineConfig) {
		c.BatchTimeout = d
	}
}

// WithSummaryLength sets the target summary length.
func WithSummaryLength(n int) PipelineOption {
	return func(c *PipelineConfig) {
		c.SummaryLength = n
	}
}

// WithMaxKeywords sets the keyword cap.
func WithMaxKeywords(n int) PipelineOption {
	return func(c *PipelineConfig) {
		c.MaxKeywords = n
	}
}

// WithTargetLanguage sets the translation target.
func WithTargetLanguage(lang string) PipelineOption {
	return func(c *PipelineConfig) {
		c.TargetLanguage = lang
	}
}

// WithCategories replaces the category vocabulary.
func WithCategories(categories ...string) PipelineOption {
	return func(c *PipelineConfig) {
		c.Categories = slices.Clone(categories)
	}
}

// WithCallPacing sets the pause between capability calls.
func WithCallPacing(d time.Duration) PipelineOption {
	return func(c *PipelineConfig) {
		c.CallPacing = d
	}
}

// DefaultPipelineConfig returns a PipelineConfig using a local Ollama as the
// default provider with fallback enabled.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		DefaultProvider: ProviderOllama,
		FallbackOrder:   []ProviderID{ProviderOllama, ProviderOpenAI, ProviderQianwen, ProviderHuoshan},
		EnableFallback:  true,
		BatchSize:       50,
		DocumentTimeout: 120 * time.Second,
		SummaryLength:   400,
		MaxKeywords:     5,
		TargetLanguage:  "en",
		Categories:      slices.Clone(DefaultCategories),
	}
}

// NewPipelineConfig creates a PipelineConfig with the default values and
// applies the provided options.
//
// Example:
//
//	cfg := NewPipelineConfig(
//	    WithDefaultProvider(ProviderOpenAI),
//	    WithFallbackOrder(ProviderOllama),
//	    WithBatchSize(20),
//	)
func NewPipelineConfig(opts ...PipelineOption) *PipelineConfig {
	cfg := DefaultPipelineConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize canonicalizes provider ids, the target language and the
// category vocabulary. Blank and duplicate categories are dropped, as is
// CategoryOther, which is always the implicit fallback.
func (c *PipelineConfig) Normalize() {
	c.DefaultProvider = ProviderID(strings.ToLower(strings.TrimSpace(string(c.DefaultProvider))))

	fallback := make([]ProviderID, 0, len(c.FallbackOrder))
	for _, id := range c.FallbackOrder {
		id = ProviderID(strings.ToLower(strings.TrimSpace(string(id))))
		if id != "" && !slices.Contains(fallback, id) {
			fallback = append(fallback, id)
		}
	}
	c.FallbackOrder = fallback

	c.TargetLanguage = core.NormalizeLanguage(c.TargetLanguage)

	categories := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		cat = strings.TrimSpace(cat)
		if cat == "" || strings.EqualFold(cat, CategoryOther) || slices.Contains(categories, cat) {
			continue
		}
		categories = append(categories, cat)
	}
	c.Categories = categories
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *PipelineConfig) Validate() error {
	c.Normalize()

	if c.DefaultProvider == "" {
		return fmt.Errorf("%w: DefaultProvider is required", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: BatchSize must be greater than 0", ErrInvalidConfig)
	}
	if c.DocumentTimeout <= 0 {
		return fmt.Errorf("%w: DocumentTimeout must be positive", ErrInvalidConfig)
	}
	if c.BatchTimeout < 0 {
		return fmt.Errorf("%w: BatchTimeout cannot be negative", ErrInvalidConfig)
	}
	if c.BatchTimeout > 0 && c.BatchTimeout < c.DocumentTimeout {
		return fmt.Errorf("%w: BatchTimeout must not be shorter than DocumentTimeout", ErrInvalidConfig)
	}
	if c.SummaryLength <= 0 {
		return fmt.Errorf("%w: SummaryLength must be greater than 0", ErrInvalidConfig)
	}
	if c.MaxKeywords <= 0 {
		return fmt.Errorf("%w: MaxKeywords must be greater than 0", ErrInvalidConfig)
	}
	if c.TargetLanguage == "" {
		return fmt.Errorf("%w: TargetLanguage is required", ErrInvalidConfig)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidConfig)
	}
	if c.CallPacing < 0 {
		return fmt.Errorf("%w: CallPacing cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// BatchBudget returns the wall-clock budget for a batch of n documents.
// An explicit BatchTimeout wins; otherwise it is DocumentTimeout * n.
func (c *PipelineConfig) BatchBudget(n int) time.Duration {
	if c.BatchTimeout > 0 {
		return c.BatchTimeout
	}
	if n <= 0 {
		n = c.BatchSize
	}
	return c.DocumentTimeout * time.Duration(n)
}

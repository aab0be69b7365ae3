package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/enricher/ai"
)

// Executor runs capabilities against the registry's providers in priority
// order until one succeeds. It never retries a provider itself; retrying
// transient errors is the adapter's job.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

var _ ai.Capabilities = (*Executor)(nil)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor) error

// WithExecutorLogger sets a custom logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExecutor creates an Executor over registry.
func NewExecutor(registry *Registry, opts ...ExecutorOption) (*Executor, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	e := &Executor{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "fallback-executor")
	return e, nil
}

// Registry returns the registry the executor reads from.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute invokes call on each candidate provider in order and returns the
// first successful result. The candidate order is fixed when Execute
// starts. When every candidate fails the error wraps ErrAllProvidersFailed
// and the last provider's error.
func Execute[T any](ctx context.Context, e *Executor, capability ai.Capability, call func(ctx context.Context, p ai.Provider) (T, error)) (T, error) {
	var zero T

	candidates := e.registry.candidateProviders()
	if len(candidates) == 0 {
		return zero, fmt.Errorf("%w: %s", ErrNoProviders, capability)
	}

	var (
		lastErr error
		lastID  ai.ProviderID
	)
	for i, provider := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", capability, err)
		}

		result, err := call(ctx, provider)
		if err == nil {
			if i > 0 {
				e.logger.Info("fallback provider succeeded", "capability", capability, "provider", string(provider.ID()), "attempt", i+1)
			}
			return result, nil
		}

		lastErr, lastID = err, provider.ID()
		e.logger.Warn("provider call failed", "capability", capability, "provider", string(provider.ID()), "err", err)
	}

	return zero, fmt.Errorf("%w: %s: last error from %s: %w", ErrAllProvidersFailed, capability, lastID, lastErr)
}

// Summarize runs the summarize capability through the fallback chain.
func (e *Executor) Summarize(ctx context.Context, text string, targetLength int) (string, error) {
	return Execute(ctx, e, ai.CapabilitySummarize, func(ctx context.Context, p ai.Provider) (string, error) {
		return p.Summarize(ctx, text, targetLength)
	})
}

// Translate runs the translate capability through the fallback chain.
func (e *Executor) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return Execute(ctx, e, ai.CapabilityTranslate, func(ctx context.Context, p ai.Provider) (string, error) {
		return p.Translate(ctx, text, sourceLang, targetLang)
	})
}

// DetectLanguage runs the detect-language capability through the fallback chain.
func (e *Executor) DetectLanguage(ctx context.Context, text string) (string, error) {
	return Execute(ctx, e, ai.CapabilityDetectLanguage, func(ctx context.Context, p ai.Provider) (string, error) {
		return p.DetectLanguage(ctx, text)
	})
}

// ExtractKeywords runs the keyword capability through the fallback chain.
func (e *Executor) ExtractKeywords(ctx context.Context, text string, max int) ([]string, error) {
	return Execute(ctx, e, ai.CapabilityExtractKeywords, func(ctx context.Context, p ai.Provider) ([]string, error) {
		return p.ExtractKeywords(ctx, text, max)
	})
}

// Categorize runs the categorize capability through the fallback chain.
func (e *Executor) Categorize(ctx context.Context, title, text string, categories []string) (string, error) {
	return Execute(ctx, e, ai.CapabilityCategorize, func(ctx context.Context, p ai.Provider) (string, error) {
		return p.Categorize(ctx, title, text, categories)
	})
}

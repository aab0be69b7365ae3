package ai

import (
	"context"
	"time"
)

// Capabilities is the set of enrichment primitives an AI backend offers.
// Implementations must be thread-safe for concurrent use.
type Capabilities interface {
	// Summarize condenses text to roughly targetLength characters.
	Summarize(ctx context.Context, text string, targetLength int) (string, error)

	// Translate translates text from sourceLang into targetLang.
	// When both name the same language the text is returned unchanged.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// DetectLanguage returns the ISO 639-1 code of the text's language.
	DetectLanguage(ctx context.Context, text string) (string, error)

	// ExtractKeywords returns at most max keywords, most relevant first.
	ExtractKeywords(ctx context.Context, text string, max int) ([]string, error)

	// Categorize asks the backend to pick one of categories for the text.
	// The raw response is returned; resolving it against the vocabulary
	// is the caller's job.
	Categorize(ctx context.Context, title, text string, categories []string) (string, error)
}

// Provider wraps one AI backend behind the capability contract.
// Each provider owns its own transport, timeout and credentials.
type Provider interface {
	Capabilities

	// ID returns the identifier the provider was registered under.
	ID() ProviderID

	// HealthCheck probes the backend. It never returns an error; failures
	// are reported through HealthStatus.
	HealthCheck(ctx context.Context) HealthStatus

	// Close releases resources held by the provider.
	Close() error
}

// HealthState is the coarse outcome of a health probe.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
)

// HealthStatus reports the result of a provider health probe.
type HealthStatus struct {
	Provider  ProviderID
	Status    HealthState
	Model     string
	Latency   time.Duration
	Error     string
	CheckedAt time.Time
}

// Healthy reports whether the probe succeeded.
func (h HealthStatus) Healthy() bool {
	return h.Status == HealthHealthy
}

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


package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/core"
)

// MockProvider is a test double for ai.Provider.
// It allows custom behavior injection via function fields and counts calls
// per capability. It is safe for concurrent use.
type MockProvider struct {
	// Function fields are called by the matching method if set.
	// If nil, a deterministic default is used.
	SummarizeFunc       func(ctx context.Context, text string, targetLength int) (string, error)
	TranslateFunc       func(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	DetectLanguageFunc  func(ctx context.Context, text string) (string, error)
	ExtractKeywordsFunc func(ctx context.Context, text string, max int) ([]string, error)
	CategorizeFunc      func(ctx context.Context, title, text string, categories []string) (string, error)
	HealthCheckFunc     func(ctx context.Context) ai.HealthStatus

	id     ai.ProviderID
	mu     sync.Mutex
	calls  map[ai.Capability]int
	closed bool
}

var _ ai.Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockProvider(id ai.ProviderID) *MockProvider {
	return &MockProvider{
		id:    id,
		calls: make(map[ai.Capability]int),
	}
}

// NewFailingProvider creates a mock provider whose every capability fails with err.
func NewFailingProvider(id ai.ProviderID, err error) *MockProvider {
	m := NewMockProvider(id)
	m.SummarizeFunc = func(context.Context, string, int) (string, error) { return "", err }
	m.TranslateFunc = func(context.Context, string, string, string) (string, error) { return "", err }
	m.DetectLanguageFunc = func(context.Context, string) (string, error) { return "", err }
	m.ExtractKeywordsFunc = func(context.Context, string, int) ([]string, error) { return nil, err }
	m.CategorizeFunc = func(context.Context, string, string, []string) (string, error) { return "", err }
	m.HealthCheckFunc = func(context.Context) ai.HealthStatus {
		return ai.HealthStatus{Provider: id, Status: ai.HealthUnhealthy, Error: err.Error(), CheckedAt: time.Now()}
	}
	return m
}

// ID returns the provider id given at construction.
func (m *MockProvider) ID() ai.ProviderID {
	return m.id
}

func (m *MockProvider) record(c ai.Capability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[c]++
}

// Summarize truncates text to targetLength runes by default.
func (m *MockProvider) Summarize(ctx context.Context, text string, targetLength int) (string, error) {
	m.record(ai.CapabilitySummarize)
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text, targetLength)
	}
	runes := []rune(text)
	if targetLength > 0 && len(runes) > targetLength {
		runes = runes[:targetLength]
	}
	return string(runes), nil
}

// Translate prefixes text with the target language by default, and returns
// it unchanged when source and target match.
func (m *MockProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	m.record(ai.CapabilityTranslate)
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, sourceLang, targetLang)
	}
	if core.SameLanguage(sourceLang, targetLang) {
		return text, nil
	}
	return "[" + targetLang + "] " + text, nil
}

// DetectLanguage returns "en" by default.
func (m *MockProvider) DetectLanguage(ctx context.Context, text string) (string, error) {
	m.record(ai.CapabilityDetectLanguage)
	if m.DetectLanguageFunc != nil {
		return m.DetectLanguageFunc(ctx, text)
	}
	return "en", nil
}

// ExtractKeywords returns the first distinct words of the text by default.
func (m *MockProvider) ExtractKeywords(ctx context.Context, text string, max int) ([]string, error) {
	m.record(ai.CapabilityExtractKeywords)
	if m.ExtractKeywordsFunc != nil {
		return m.ExtractKeywordsFunc(ctx, text, max)
	}

	seen := make(map[string]bool)
	keywords := make([]string, 0, max)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == max {
			break
		}
	}
	return keywords, nil
}

// Categorize answers with the first category by default.
func (m *MockProvider) Categorize(ctx context.Context, title, text string, categories []string) (string, error) {
	m.record(ai.CapabilityCategorize)
	if m.CategorizeFunc != nil {
		return m.CategorizeFunc(ctx, title, text, categories)
	}
	if len(categories) == 0 {
		return ai.CategoryOther, nil
	}
	return categories[0], nil
}

// HealthCheck reports healthy by default.
func (m *MockProvider) HealthCheck(ctx context.Context) ai.HealthStatus {
	m.record(ai.CapabilityHealthCheck)
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return ai.HealthStatus{
		Provider:  m.id,
		Status:    ai.HealthHealthy,
		Model:     "mock",
		CheckedAt: time.Now(),
	}
}

// Close marks the provider closed.
func (m *MockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CallCount returns the number of calls made to a capability.
func (m *MockProvider) CallCount(c ai.Capability) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[c]
}

// TotalCalls returns the number of capability calls, excluding health checks.
func (m *MockProvider) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for c, n := range m.calls {
		if c != ai.CapabilityHealthCheck {
			total += n
		}
	}
	return total
}

// Reset clears the call counts and custom functions.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[ai.Capability]int)
	m.SummarizeFunc = nil
	m.TranslateFunc = nil
	m.DetectLanguageFunc = nil
	m.ExtractKeywordsFunc = nil
	m.CategorizeFunc = nil
	m.HealthCheckFunc = nil
	m.closed = false
}

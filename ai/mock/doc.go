// Package mock provides test double implementations of the ai.Provider interface.
//
// The mocks allow tests to run without external AI services and enable
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider(ai.ProviderOllama)
//	summary, err := provider.Summarize(ctx, "some text", 400)
//
//	// Custom behavior injection
//	provider.DetectLanguageFunc = func(ctx context.Context, text string) (string, error) {
//	    return "zh", nil
//	}
//
//	// A provider that fails every call
//	broken := mock.NewFailingProvider(ai.ProviderOpenAI, errors.New("connection refused"))
//
//	// Check call counts
//	count := provider.CallCount(ai.CapabilitySummarize)
//
// # Default Behavior
//
//   - DetectLanguage: "en"
//   - Translate: "[target] text", or text unchanged when languages match
//   - Summarize: text truncated to the target length
//   - ExtractKeywords: first distinct words of the text
//   - Categorize: the first category of the vocabulary
//   - HealthCheck: healthy
package mock

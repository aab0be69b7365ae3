package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/enricher/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel is an llms.Model that answers from a queue of responses.
type fakeModel struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sb strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				sb.WriteString(tc.Text)
				sb.WriteString("\n")
			}
		}
	}
	f.prompts = append(f.prompts, sb.String())

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.responses) == 0 {
		return &llms.ContentResponse{}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: resp}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type stubDetector struct {
	lang string
	ok   bool
}

func (s stubDetector) Detect(string) (string, bool) {
	return s.lang, s.ok
}

func newTestProvider(t *testing.T, model llms.Model, opts ...Option) *Provider {
	t.Helper()
	cfg := ai.DefaultProviderConfig(ai.ProviderOllama)
	cfg.RetryDelay = time.Millisecond
	p, err := NewProvider(cfg, model, opts...)
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresModel(t *testing.T) {
	_, err := NewProvider(ai.DefaultProviderConfig(ai.ProviderOllama), nil)
	assert.ErrorIs(t, err, ErrModelRequired)
}

func TestSummarize(t *testing.T) {
	t.Run("truncates to target length", func(t *testing.T) {
		model := &fakeModel{responses: []string{"```\n" + strings.Repeat("a", 50) + "\n```"}}
		p := newTestProvider(t, model)

		summary, err := p.Summarize(context.Background(), "long article", 10)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("a", 10), summary)
		assert.Contains(t, model.prompts[0], "at most 10 characters")
	})

	t.Run("retries transient failures", func(t *testing.T) {
		model := &fakeModel{
			errs:      []error{errors.New("connection reset"), nil},
			responses: []string{"short summary"},
		}
		p := newTestProvider(t, model)

		summary, err := p.Summarize(context.Background(), "article", 400)
		require.NoError(t, err)
		assert.Equal(t, "short summary", summary)
		assert.Equal(t, 2, model.callCount())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		boom := errors.New("503 service unavailable")
		model := &fakeModel{errs: []error{boom, boom, boom}}
		p := newTestProvider(t, model)

		_, err := p.Summarize(context.Background(), "article", 400)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "ollama summarize")
		assert.Equal(t, 3, model.callCount())
	})

	t.Run("empty response is an error", func(t *testing.T) {
		model := &fakeModel{responses: []string{"  ", "", "<think>hmm</think>"}}
		p := newTestProvider(t, model)

		_, err := p.Summarize(context.Background(), "article", 400)
		assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	})
}

func TestTranslate(t *testing.T) {
	t.Run("same language short-circuits", func(t *testing.T) {
		model := &fakeModel{}
		p := newTestProvider(t, model)

		out, err := p.Translate(context.Background(), "Hello", "en-US", "en")
		require.NoError(t, err)
		assert.Equal(t, "Hello", out)
		assert.Zero(t, model.callCount())
	})

	t.Run("strips quotes", func(t *testing.T) {
		model := &fakeModel{responses: []string{`"Hello world"`}}
		p := newTestProvider(t, model)

		out, err := p.Translate(context.Background(), "你好世界", "zh", "en")
		require.NoError(t, err)
		assert.Equal(t, "Hello world", out)
		assert.Contains(t, model.prompts[0], "from zh into en")
	})
}

func TestDetectLanguage(t *testing.T) {
	t.Run("local detector wins", func(t *testing.T) {
		model := &fakeModel{}
		p := newTestProvider(t, model, WithLanguageDetector(stubDetector{lang: "fr", ok: true}))

		lang, err := p.DetectLanguage(context.Background(), "Bonjour")
		require.NoError(t, err)
		assert.Equal(t, "fr", lang)
		assert.Zero(t, model.callCount())
	})

	t.Run("falls back to the model", func(t *testing.T) {
		model := &fakeModel{responses: []string{"Language: zh-CN."}}
		p := newTestProvider(t, model, WithLanguageDetector(stubDetector{ok: false}))

		lang, err := p.DetectLanguage(context.Background(), "你好")
		require.NoError(t, err)
		assert.Equal(t, "zh", lang)
		assert.Equal(t, 1, model.callCount())
	})
}

func TestExtractKeywords(t *testing.T) {
	model := &fakeModel{responses: []string{"1. Go, concurrency，pipelines、go\n- scheduling, batching, extra"}}
	p := newTestProvider(t, model)

	keywords, err := p.ExtractKeywords(context.Background(), "text", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "concurrency", "pipelines", "scheduling"}, keywords)
}

func TestCategorize(t *testing.T) {
	model := &fakeModel{responses: []string{"The category is: technology"}}
	p := newTestProvider(t, model)

	raw, err := p.Categorize(context.Background(), "New chip", "A new chip was released", []string{"technology", "sports"})
	require.NoError(t, err)
	assert.Equal(t, "The category is: technology", raw)
	assert.Contains(t, model.prompts[0], "technology\nsports")
	assert.Contains(t, model.prompts[0], "Title: New chip")
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		p := newTestProvider(t, &fakeModel{}, WithHealthProbe(func(ctx context.Context) error { return nil }))

		status := p.HealthCheck(context.Background())
		assert.True(t, status.Healthy())
		assert.Equal(t, ai.ProviderOllama, status.Provider)
		assert.Equal(t, "qwen2.5:3b", status.Model)
	})

	t.Run("unhealthy", func(t *testing.T) {
		p := newTestProvider(t, &fakeModel{}, WithHealthProbe(func(ctx context.Context) error {
			return errors.New("connection refused")
		}))

		status := p.HealthCheck(context.Background())
		assert.False(t, status.Healthy())
		assert.Equal(t, "connection refused", status.Error)
	})

	t.Run("default probe generates", func(t *testing.T) {
		model := &fakeModel{responses: []string{"pong"}}
		p := newTestProvider(t, model)

		status := p.HealthCheck(context.Background())
		assert.True(t, status.Healthy())
		assert.Equal(t, 1, model.callCount())
	})
}

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want []string
	}{
		{name: "comma separated", in: "a, b, c", max: 5, want: []string{"a", "b", "c"}},
		{name: "truncated", in: "a, b, c", max: 2, want: []string{"a", "b"}},
		{name: "cjk separators", in: "人工智能，芯片、半导体", max: 5, want: []string{"人工智能", "芯片", "半导体"}},
		{name: "dedupes case-insensitively", in: "Go, go, GO, rust", max: 5, want: []string{"Go", "rust"}},
		{name: "numbered lines", in: "1. alpha\n2. beta.\n3) gamma", max: 5, want: []string{"alpha", "beta", "gamma"}},
		{name: "empty", in: " , ,", max: 5, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseKeywords(tt.in, tt.max))
		})
	}
}

func TestCleanResponse(t *testing.T) {
	assert.Equal(t, "hello", cleanResponse("  \"hello\"  "))
	assert.Equal(t, "answer", cleanResponse("<think>\nreasoning\n</think>\nanswer"))
	assert.Equal(t, "code", cleanResponse("```\ncode\n```"))
	assert.Equal(t, "引用", cleanResponse("“引用”"))
}

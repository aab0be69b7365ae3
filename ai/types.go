package ai

// ProviderID identifies an AI backend.
type ProviderID string

const (
	ProviderOllama  ProviderID = "ollama"
	ProviderOpenAI  ProviderID = "openai"
	ProviderQianwen ProviderID = "qianwen"
	ProviderHuoshan ProviderID = "huoshan"
)

// Capability names one enrichment primitive. It is used for logging and
// error reporting by the fallback executor.
type Capability string

const (
	CapabilityDetectLanguage  Capability = "detect_language"
	CapabilityTranslate       Capability = "translate"
	CapabilitySummarize       Capability = "summarize"
	CapabilityExtractKeywords Capability = "extract_keywords"
	CapabilityCategorize      Capability = "categorize"
	CapabilityHealthCheck     Capability = "health_check"
)

// CategoryOther is the category assigned when a response matches nothing
// in the vocabulary.
const CategoryOther = "other"

// DefaultCategories is the closed category vocabulary.
// Order matters: category resolution picks the first match.
var DefaultCategories = []string{
	"technology",
	"science",
	"business",
	"finance",
	"politics",
	"health",
	"education",
	"culture",
	"sports",
	"entertainment",
}

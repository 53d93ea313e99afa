package modelbridge

// ProviderID identifies which backend serves a request. It is a closed set:
// everything downstream of classification switches exhaustively over it.
type ProviderID int

const (
	// ProviderOpenAI is the primary, OpenAI-compatible backend.
	ProviderOpenAI ProviderID = iota
	// ProviderGemini is the alternate, Gemini backend.
	ProviderGemini
)

func (p ProviderID) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// geminiModels is the allow-list that routes a model name to the alternate
// provider. Anything not listed here goes to the primary provider.
var geminiModels = []string{
	"gemini-pro",
	"gemini-1.5-pro",
	"gemini-1.5-pro-latest",
	"gemini-1.5-flash",
	"gemini-1.5-flash-latest",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
}

// recommendedModels are primary-provider models accepted without consulting
// the fetched model list.
var recommendedModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"o1",
	"o1-mini",
	"o3",
	"o3-mini",
	"o4-mini",
}

// ClassifyModel maps a model name to its provider. Total function: unknown
// names fall through to the primary provider.
func ClassifyModel(model string) ProviderID {
	for _, m := range geminiModels {
		if m == model {
			return ProviderGemini
		}
	}
	return ProviderOpenAI
}

// GeminiModels returns a copy of the alternate-provider allow-list.
func GeminiModels() []string {
	out := make([]string, len(geminiModels))
	copy(out, geminiModels)
	return out
}

// RecommendedModels returns a copy of the recommended primary-provider models.
func RecommendedModels() []string {
	out := make([]string, len(recommendedModels))
	copy(out, recommendedModels)
	return out
}

func inStaticLists(model string) bool {
	for _, m := range recommendedModels {
		if m == model {
			return true
		}
	}
	for _, m := range geminiModels {
		if m == model {
			return true
		}
	}
	return false
}

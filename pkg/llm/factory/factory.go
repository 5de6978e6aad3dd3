package factory

import (
	"fmt"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/llm"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/llm/gemini"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/llm/ollama"
)

// NewLLMProvider selects a provider implementation from config strings.
func NewLLMProvider(provider, model, ollamaBaseURL, geminiKey string) (llm.LLMProvider, error) {
	switch provider {
	case "ollama":
		return ollama.NewOllamaProvider(ollamaBaseURL, model), nil
	case "gemini":
		if geminiKey == "" {
			return nil, fmt.Errorf("gemini provider selected but GOOGLE_GEMINI_API_KEY is empty")
		}
		return gemini.NewGeminiProvider(geminiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

package ai

import "context"

// Runtime is the minimal interface implemented by model backends
// (OpenRouter, Ollama, Anthropic).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used for runtime selection.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderAnthropic  = "anthropic"
	ProviderLocal      = "local"
)

// NormalizeProvider maps user-facing aliases onto a registered provider name.
func NormalizeProvider(name string) string {
	switch name {
	case "", "openrouter", "OpenRouter", "OPENROUTER", "openai", "google", "gemini", "meta", "llama":
		return ProviderOpenRouter
	case "ollama", "Ollama", "local", "LOCAL", "Local":
		return ProviderOllama
	case "anthropic", "Anthropic", "ANTHROPIC", "claude":
		return ProviderAnthropic
	}
	return name
}

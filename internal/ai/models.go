package ai

import "sort"

// ModelInfo holds the metadata needed to budget prompts for a model.
type ModelInfo struct {
	Name          string
	ContextTokens int // approximate context window
}

// DefaultContextTokens is assumed for models missing from the catalog.
const DefaultContextTokens = 8192

var models = map[string]ModelInfo{
	"openai/gpt-4o-mini":          {Name: "openai/gpt-4o-mini", ContextTokens: 128000},
	"openai/gpt-4o":               {Name: "openai/gpt-4o", ContextTokens: 128000},
	"openai/gpt-4.1-mini":         {Name: "openai/gpt-4.1-mini", ContextTokens: 128000},
	"anthropic/claude-3.5-sonnet": {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000},
	"claude-sonnet-4-5":           {Name: "claude-sonnet-4-5", ContextTokens: 200000},
	"claude-haiku-4-5":            {Name: "claude-haiku-4-5", ContextTokens: 200000},
	"google/gemini-1.5-flash":     {Name: "google/gemini-1.5-flash", ContextTokens: 1000000},
	"deepseek/deepseek-r1:free":   {Name: "deepseek/deepseek-r1:free", ContextTokens: 128000},
	// Common local (Ollama) tags
	"llama3:latest":           {Name: "llama3:latest", ContextTokens: 8192},
	"llama3.1:8b-instruct":    {Name: "llama3.1:8b-instruct", ContextTokens: 8192},
	"qwen2.5-coder:7b":        {Name: "qwen2.5-coder:7b", ContextTokens: 32768},
	"phi3:mini-128k-instruct": {Name: "phi3:mini-128k-instruct", ContextTokens: 128000},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// ContextTokens returns the model's context window, or DefaultContextTokens when unknown.
func ContextTokens(name string) int {
	if mi, ok := models[name]; ok && mi.ContextTokens > 0 {
		return mi.ContextTokens
	}
	return DefaultContextTokens
}

// Models returns the catalog sorted by name.
func Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

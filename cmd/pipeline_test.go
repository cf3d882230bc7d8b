package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datachat-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datachat-cli/internal/config"
)

func TestSelectModelPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{Model: "cfg-model"}
	require.Equal(t, "cli-model", selectModel(cfg, "cli-model"))
	require.Equal(t, "cfg-model", selectModel(cfg, ""))
	cfg.Model = ""
	require.Equal(t, "openai/gpt-4o-mini", selectModel(cfg, ""))
}

func TestResolveAPIKey(t *testing.T) {
	cfg := &cfgpkg.Global{APIKey: "from-config"}

	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	require.Equal(t, "from-config", resolveAPIKey(ai.ProviderOpenRouter, cfg))

	t.Setenv("OPENROUTER_API_KEY", "or-env")
	t.Setenv("ANTHROPIC_API_KEY", "an-env")
	require.Equal(t, "or-env", resolveAPIKey(ai.ProviderOpenRouter, cfg))
	require.Equal(t, "an-env", resolveAPIKey(ai.ProviderAnthropic, cfg))
	require.Equal(t, "from-config", resolveAPIKey(ai.ProviderOllama, cfg))
}

func TestBuildRuntimeProviders(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantType any
	}{
		{provider: "", want: ai.ProviderOpenRouter, wantType: &ai.Client{}},
		{provider: "local", want: ai.ProviderOllama, wantType: &ai.OllamaClient{}},
		{provider: "claude", want: ai.ProviderAnthropic, wantType: &ai.AnthropicClient{}},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rt, name, err := buildRuntime(&cfgpkg.Global{Provider: tt.provider, APIKey: "k"})
			require.NoError(t, err)
			require.Equal(t, tt.want, name)
			require.IsType(t, tt.wantType, rt)
		})
	}

	_, _, err := buildRuntime(&cfgpkg.Global{Provider: "bedrock"})
	require.ErrorContains(t, err, "provider not supported: bedrock")
}

func TestSetConfigValue(t *testing.T) {
	c := &cfgpkg.Global{}
	require.NoError(t, setConfigValue(c, "correction_phrases", " wrong , nope ,,"))
	require.Equal(t, []string{"wrong", "nope"}, c.CorrectionPhrases)

	require.NoError(t, setConfigValue(c, "session_ttl_min", "15"))
	require.Equal(t, 15, c.SessionTTLMin)

	require.NoError(t, setConfigValue(c, "analysis_enabled", "false"))
	require.False(t, c.AnalysisEnabled)

	require.Error(t, setConfigValue(c, "temperature", "3"))
	require.Error(t, setConfigValue(c, "correction_phrases", " , "))
	require.Error(t, setConfigValue(c, "provider", "bedrock"))
}

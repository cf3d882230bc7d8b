package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/datachat-cli/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "openrouter", c.Provider)
	require.Equal(t, "df", c.TableName)
	require.Equal(t, []config.ColumnRename{{From: "YQ (YearQuarter)", To: "YQ"}}, c.ColumnRenames)
	require.Equal(t, "file", c.HistoryBackend)
	require.Equal(t, filepath.Join(home, ".datachat", "conversation_history.json"), c.HistoryPath)
	require.Equal(t, config.DefaultCorrectionPhrases, c.CorrectionPhrases)
	require.True(t, c.AnalysisEnabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfgPath := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("model: from-file\nhistory_backend: sqlite\nexec_timeout_sec: 5\n"), 0o644))
	t.Setenv("DATACHAT_MODEL", "from-env")

	c, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "from-env", c.Model)
	require.Equal(t, "sqlite", c.HistoryBackend)
	require.Equal(t, 5, c.ExecTimeoutSec)
	require.Equal(t, filepath.Join(home, ".datachat", "history.db"), c.HistoryPath)
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgPath := filepath.Join(home, "cfg.yaml")

	c, err := config.Load(cfgPath)
	require.NoError(t, err)
	c.DatasetPath = "/data/cancer.csv"
	c.Provider = "anthropic"
	require.NoError(t, config.Save(c, cfgPath))

	again, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "/data/cancer.csv", again.DatasetPath)
	require.Equal(t, "anthropic", again.Provider)
}

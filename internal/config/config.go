package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dirName = ".datachat"

// Global configuration structure.
type Global struct {
	APIKey        string  `mapstructure:"api_key" yaml:"api_key"`
	Provider      string  `mapstructure:"provider" yaml:"provider"`
	Model         string  `mapstructure:"model" yaml:"model"`
	AnalysisModel string  `mapstructure:"analysis_model" yaml:"analysis_model"`
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`

	// Dataset
	DatasetPath     string         `mapstructure:"dataset_path" yaml:"dataset_path"`
	DatasetSheet    string         `mapstructure:"dataset_sheet" yaml:"dataset_sheet"`
	TableName       string         `mapstructure:"table_name" yaml:"table_name"`
	ColumnRenames   []ColumnRename `mapstructure:"column_renames" yaml:"column_renames"`
	RequiredColumns []string       `mapstructure:"required_columns" yaml:"required_columns"`
	PreviewRows     int            `mapstructure:"preview_rows" yaml:"preview_rows"`

	// Conversation persistence
	HistoryBackend string `mapstructure:"history_backend" yaml:"history_backend"`
	HistoryPath    string `mapstructure:"history_path" yaml:"history_path"`

	// Sandbox limits
	ExecTimeoutSec  int    `mapstructure:"exec_timeout_sec" yaml:"exec_timeout_sec"`
	ExecMemoryLimit string `mapstructure:"exec_memory_limit" yaml:"exec_memory_limit"`
	ExecThreads     int    `mapstructure:"exec_threads" yaml:"exec_threads"`
	ExecMaxRows     int    `mapstructure:"exec_max_rows" yaml:"exec_max_rows"`

	// Pipeline
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
	AnalysisEnabled   bool     `mapstructure:"analysis_enabled" yaml:"analysis_enabled"`
	CorrectionPhrases []string `mapstructure:"correction_phrases" yaml:"correction_phrases"`
	ExtraGuidance     string   `mapstructure:"extra_guidance" yaml:"extra_guidance"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Runtimes
	OpenRouterBaseURL string `mapstructure:"openrouter_base_url" yaml:"openrouter_base_url"`
	OllamaHost        string `mapstructure:"ollama_host" yaml:"ollama_host"`
	AnthropicBaseURL  string `mapstructure:"anthropic_base_url" yaml:"anthropic_base_url"`

	// Server
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`
}

// ColumnRename maps a differently spelled source column to its canonical name.
// A list is used instead of a map because viper lower-cases map keys.
type ColumnRename struct {
	From string `mapstructure:"from" yaml:"from"`
	To   string `mapstructure:"to" yaml:"to"`
}

// DefaultCorrectionPhrases are the dissatisfaction signals that replay the last query.
var DefaultCorrectionPhrases = []string{"wrong answer", "incorrect", "rectify"}

// Dir returns the configuration directory, ~/.datachat.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datachat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATACHAT")
	v.AutomaticEnv()

	v.SetDefault("provider", "openrouter")
	v.SetDefault("model", "openai/gpt-4o-mini")
	v.SetDefault("analysis_model", "")
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("dataset_sheet", "")
	v.SetDefault("table_name", "df")
	v.SetDefault("column_renames", []map[string]any{{"from": "YQ (YearQuarter)", "to": "YQ"}})
	v.SetDefault("required_columns", []string{})
	v.SetDefault("preview_rows", 5)
	v.SetDefault("history_backend", "file")
	v.SetDefault("exec_timeout_sec", 30)
	v.SetDefault("exec_memory_limit", "1GB")
	v.SetDefault("exec_threads", 2)
	v.SetDefault("exec_max_rows", 200)
	v.SetDefault("request_timeout_sec", 120)
	v.SetDefault("analysis_enabled", true)
	v.SetDefault("correction_phrases", DefaultCorrectionPhrases)
	v.SetDefault("extra_guidance", "")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("openrouter_base_url", "")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("anthropic_base_url", "")
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("session_ttl_min", 60)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.HistoryPath == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		if c.HistoryBackend == "sqlite" {
			c.HistoryPath = filepath.Join(dir, "history.db")
		} else {
			c.HistoryPath = filepath.Join(dir, "conversation_history.json")
		}
	}
	if len(c.CorrectionPhrases) == 0 {
		c.CorrectionPhrases = DefaultCorrectionPhrases
	}
	return &c, nil
}

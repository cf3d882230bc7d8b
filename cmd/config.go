package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datachat-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datachat-cli/internal/config"
	"github.com/KaramelBytes/datachat-cli/internal/history"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DataChat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "model: %s\n", cfg.Model)
		if cfg.AnalysisModel != "" {
			fmt.Fprintf(out, "analysis_model: %s\n", cfg.AnalysisModel)
		}
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "dataset_path: %s\n", cfg.DatasetPath)
		if cfg.DatasetSheet != "" {
			fmt.Fprintf(out, "dataset_sheet: %s\n", cfg.DatasetSheet)
		}
		fmt.Fprintf(out, "table_name: %s\n", cfg.TableName)
		for _, r := range cfg.ColumnRenames {
			fmt.Fprintf(out, "column_rename: %q -> %q\n", r.From, r.To)
		}
		if len(cfg.RequiredColumns) > 0 {
			fmt.Fprintf(out, "required_columns: %s\n", strings.Join(cfg.RequiredColumns, ", "))
		}
		fmt.Fprintf(out, "history_backend: %s\n", cfg.HistoryBackend)
		fmt.Fprintf(out, "history_path: %s\n", cfg.HistoryPath)
		fmt.Fprintf(out, "exec_timeout_sec: %d\n", cfg.ExecTimeoutSec)
		fmt.Fprintf(out, "exec_max_rows: %d\n", cfg.ExecMaxRows)
		fmt.Fprintf(out, "request_timeout_sec: %d\n", cfg.RequestTimeoutSec)
		fmt.Fprintf(out, "analysis_enabled: %t\n", cfg.AnalysisEnabled)
		fmt.Fprintf(out, "correction_phrases: %s\n", strings.Join(cfg.CorrectionPhrases, ", "))
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		p := ai.NormalizeProvider(val)
		if p != ai.ProviderOpenRouter && p != ai.ProviderOllama && p != ai.ProviderAnthropic {
			return fmt.Errorf("invalid provider: %s (use openrouter, ollama or anthropic)", val)
		}
		c.Provider = p
	case "model":
		c.Model = val
	case "analysis_model":
		c.AnalysisModel = val
	case "dataset_path":
		c.DatasetPath = val
	case "dataset_sheet":
		c.DatasetSheet = val
	case "table_name":
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("table_name cannot be empty")
		}
		c.TableName = val
	case "history_backend":
		if val != history.BackendFile && val != history.BackendSQLite {
			return fmt.Errorf("invalid history_backend: %s (use %s or %s)", val, history.BackendFile, history.BackendSQLite)
		}
		c.HistoryBackend = val
	case "history_path":
		c.HistoryPath = val
	case "exec_memory_limit":
		c.ExecMemoryLimit = val
	case "extra_guidance":
		c.ExtraGuidance = val
	case "ollama_host":
		c.OllamaHost = val
	case "openrouter_base_url":
		c.OpenRouterBaseURL = val
	case "anthropic_base_url":
		c.AnthropicBaseURL = val
	case "listen_addr":
		c.ListenAddr = val
	case "max_tokens", "preview_rows", "exec_timeout_sec", "exec_threads", "exec_max_rows",
		"request_timeout_sec", "http_timeout_sec", "retry_max_attempts", "session_ttl_min":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		*intField(c, key) = i
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v (want 0..2)", val)
		}
		c.Temperature = f
	case "analysis_enabled":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for analysis_enabled: %w", err)
		}
		c.AnalysisEnabled = b
	case "correction_phrases":
		var phrases []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				phrases = append(phrases, p)
			}
		}
		if len(phrases) == 0 {
			return fmt.Errorf("correction_phrases needs at least one phrase")
		}
		c.CorrectionPhrases = phrases
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func intField(c *cfgpkg.Global, key string) *int {
	switch key {
	case "max_tokens":
		return &c.MaxTokens
	case "preview_rows":
		return &c.PreviewRows
	case "exec_timeout_sec":
		return &c.ExecTimeoutSec
	case "exec_threads":
		return &c.ExecThreads
	case "exec_max_rows":
		return &c.ExecMaxRows
	case "request_timeout_sec":
		return &c.RequestTimeoutSec
	case "http_timeout_sec":
		return &c.HTTPTimeoutSec
	case "retry_max_attempts":
		return &c.RetryMaxAttempts
	case "session_ttl_min":
		return &c.SessionTTLMin
	}
	panic("unknown int config key: " + key)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

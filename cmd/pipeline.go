package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/datachat-cli/internal/ai"
	"github.com/KaramelBytes/datachat-cli/internal/analyst"
	"github.com/KaramelBytes/datachat-cli/internal/chat"
	"github.com/KaramelBytes/datachat-cli/internal/codegen"
	cfgpkg "github.com/KaramelBytes/datachat-cli/internal/config"
	"github.com/KaramelBytes/datachat-cli/internal/dataset"
	"github.com/KaramelBytes/datachat-cli/internal/history"
	"github.com/KaramelBytes/datachat-cli/internal/sandbox"
	"github.com/KaramelBytes/datachat-cli/internal/utils"
)

func buildRuntime(cfg *cfgpkg.Global) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg.HTTPTimeoutSec > 0 {
		httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
	}
	if cfg.RetryMaxAttempts > 0 {
		retryMax = cfg.RetryMaxAttempts
	}
	if cfg.RetryBaseDelayMs > 0 {
		baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
	}
	if cfg.RetryMaxDelayMs > 0 {
		maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
	}

	providerName := ai.NormalizeProvider(strings.TrimSpace(cfg.Provider))
	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      resolveAPIKey(providerName, cfg),
	}
	switch providerName {
	case ai.ProviderOpenRouter:
		rc.BaseURL = cfg.OpenRouterBaseURL
	case ai.ProviderOllama:
		rc.Host = cfg.OllamaHost
		if rc.Host == "" {
			rc.Host = "http://127.0.0.1:11434"
		}
	case ai.ProviderAnthropic:
		rc.BaseURL = cfg.AnthropicBaseURL
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s", providerName)
	}
	return client, providerName, nil
}

// resolveAPIKey prefers the provider's own environment variable over the
// configured api_key.
func resolveAPIKey(provider string, cfg *cfgpkg.Global) string {
	var env string
	switch provider {
	case ai.ProviderOpenRouter:
		env = os.Getenv("OPENROUTER_API_KEY")
	case ai.ProviderAnthropic:
		env = os.Getenv("ANTHROPIC_API_KEY")
	}
	if env != "" {
		return env
	}
	return cfg.APIKey
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg.Model != "" {
		return cfg.Model
	}
	return "openai/gpt-4o-mini"
}

func loadDataset(ctx context.Context, cfg *cfgpkg.Global) (*dataset.Dataset, error) {
	if cfg.DatasetPath == "" {
		return nil, errors.New("no dataset configured: pass --dataset or set dataset_path")
	}
	path, err := utils.ExpandHome(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	renames := make([]dataset.Rename, 0, len(cfg.ColumnRenames))
	for _, r := range cfg.ColumnRenames {
		renames = append(renames, dataset.Rename{From: r.From, To: r.To})
	}
	ds, err := dataset.Load(ctx, dataset.Config{
		Logger:      log,
		Path:        path,
		Table:       cfg.TableName,
		Renames:     renames,
		Required:    cfg.RequiredColumns,
		PreviewRows: cfg.PreviewRows,
		Sheet:       cfg.DatasetSheet,
	})
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return ds, nil
}

func openHistory(cfg *cfgpkg.Global) (history.Opener, error) {
	path, err := utils.ExpandHome(cfg.HistoryPath)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	opener, err := history.NewOpener(cfg.HistoryBackend, path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return opener, nil
}

// pipeline is everything a turn needs: the loaded dataset, its sandbox, the
// dispatcher wired to the model runtime, and the conversation store.
type pipeline struct {
	dataset    *dataset.Dataset
	dispatcher *chat.Dispatcher
	history    history.Opener
	provider   string
	model      string
}

func newPipeline(ctx context.Context, cfg *cfgpkg.Global) (*pipeline, error) {
	runtime, provider, err := buildRuntime(cfg)
	if err != nil {
		return nil, err
	}
	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p := &pipeline{dataset: ds, provider: provider, model: selectModel(cfg, "")}
	if err := p.wire(ctx, cfg, runtime); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func (p *pipeline) wire(ctx context.Context, cfg *cfgpkg.Global, runtime ai.Runtime) error {
	sb, err := sandbox.New(ctx, sandbox.Config{
		Logger:      log,
		DB:          p.dataset.DB(),
		Timeout:     time.Duration(cfg.ExecTimeoutSec) * time.Second,
		MemoryLimit: cfg.ExecMemoryLimit,
		Threads:     cfg.ExecThreads,
		MaxRows:     cfg.ExecMaxRows,
	})
	if err != nil {
		return fmt.Errorf("create sandbox: %w", err)
	}

	gen, err := codegen.New(codegen.Config{
		Logger:        log,
		Runtime:       runtime,
		Model:         p.model,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		Table:         p.dataset.Table(),
		Columns:       p.dataset.ColumnNames(),
		ExtraGuidance: cfg.ExtraGuidance,
	})
	if err != nil {
		return err
	}

	var an chat.Analyst
	if cfg.AnalysisEnabled {
		model := cfg.AnalysisModel
		if model == "" {
			model = p.model
		}
		a, err := analyst.New(analyst.Config{
			Logger:      log,
			Runtime:     runtime,
			Executor:    sb,
			Model:       model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return err
		}
		an = a
	}

	p.dispatcher, err = chat.NewDispatcher(chat.Config{
		Logger:            log,
		Generator:         gen,
		Executor:          sb,
		Analyst:           an,
		Preview:           p.dataset.Preview(),
		CorrectionPhrases: cfg.CorrectionPhrases,
		RequestTimeout:    time.Duration(cfg.RequestTimeoutSec) * time.Second,
	})
	if err != nil {
		return err
	}

	p.history, err = openHistory(cfg)
	return err
}

// session opens the stored conversation for id.
func (p *pipeline) session(ctx context.Context, id string) (*chat.Session, error) {
	store, err := p.history.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	return chat.NewSession(id, store), nil
}

func (p *pipeline) welcome() string {
	return chat.Welcome(filepath.Base(p.dataset.Path()))
}

func (p *pipeline) Close() error {
	var errs []error
	if p.history != nil {
		errs = append(errs, p.history.Close())
	}
	if p.dataset != nil {
		errs = append(errs, p.dataset.Close())
	}
	return errors.Join(errs...)
}

// Package codegen asks a model runtime for SQL that answers a question about the dataset.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KaramelBytes/datachat-cli/internal/ai"
	"github.com/KaramelBytes/datachat-cli/internal/history"
	"github.com/KaramelBytes/datachat-cli/internal/utils"
)

type Config struct {
	Logger        *slog.Logger
	Runtime       ai.Runtime
	Model         string
	MaxTokens     int
	Temperature   float64
	Table         string
	Columns       []string
	ExtraGuidance string
	// ContextTokens bounds the whole prompt. Zero looks the model up in the catalog.
	ContextTokens int
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Runtime == nil {
		return errors.New("runtime is required")
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.Table == "" {
		c.Table = "df"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.ContextTokens <= 0 {
		c.ContextTokens = ai.ContextTokens(c.Model)
	}
	return nil
}

// Request is one generation call.
type Request struct {
	Query   string
	Preview string
	History []history.Turn // oldest first
}

type Generator struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate generator config: %w", err)
	}
	return &Generator{log: cfg.Logger, cfg: cfg}, nil
}

// Generate returns the model's raw reply. Callers pass it through Sanitize.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if req.Query == "" {
		return "", errors.New("query cannot be empty")
	}
	prompt := g.Prompt(req)

	start := time.Now()
	resp, err := g.cfg.Runtime.Generate(ctx, ai.GenerateRequest{
		Model: g.cfg.Model,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		g.log.Error("code generation failed", "model", g.cfg.Model, "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("generate code: %w", err)
	}
	text, err := resp.Text()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	g.log.Debug("code generated", "model", g.cfg.Model, "duration", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return text, nil
}

// Prompt builds the user message, dropping the oldest turns until the
// prompt plus the reply budget fits the model's context window.
func (g *Generator) Prompt(req Request) string {
	base := buildPrompt(g.cfg.Table, g.cfg.Columns, g.cfg.ExtraGuidance, req.Preview, nil, req.Query)
	budget := g.cfg.ContextTokens - g.cfg.MaxTokens - utils.CountTokens(systemPrompt) - utils.CountTokens(base)

	lines := conversationLines(req.History)
	var convo []string
	if budget > 0 {
		convo = utils.TailWithinTokens(lines, budget)
	}
	if dropped := len(lines) - len(convo); dropped > 0 {
		g.log.Debug("trimmed conversation for context window", "dropped_turns", dropped)
	}
	return buildPrompt(g.cfg.Table, g.cfg.Columns, g.cfg.ExtraGuidance, req.Preview, convo, req.Query)
}

// Package analyst produces a natural-language reading of a generated script's output.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/datachat-cli/internal/ai"
	"github.com/KaramelBytes/datachat-cli/internal/sandbox"
	"github.com/KaramelBytes/datachat-cli/internal/utils"
)

const systemPrompt = `You are a data analysis expert who reads DuckDB SQL and its output.
1. Show the output in a readable, aligned form.
2. Answer the user's question in plain language, backed by the numbers in the output.
3. If the question asks for nothing specific, summarise the key insights: aggregates, trends, notable values.
4. If the script failed, explain the error clearly for someone with little SQL knowledge and suggest a fix.
Never answer "I don't know".`

// Executor runs a script. *sandbox.Sandbox satisfies it.
type Executor interface {
	Execute(ctx context.Context, code string) (*sandbox.Outcome, error)
}

type Config struct {
	Logger      *slog.Logger
	Runtime     ai.Runtime
	Executor    Executor
	Model       string
	MaxTokens   int
	Temperature float64
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Runtime == nil {
		return errors.New("runtime is required")
	}
	if c.Executor == nil {
		return errors.New("executor is required")
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	return nil
}

type Request struct {
	Query string
	Code  string
}

type Analyst struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Analyst, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate analyst config: %w", err)
	}
	return &Analyst{log: cfg.Logger, cfg: cfg}, nil
}

// Analyze re-runs the code on its own and asks the model to interpret the
// output. An execution failure is not an error here: the model is asked to
// explain it instead.
func (a *Analyst) Analyze(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Code) == "" {
		return "", errors.New("code cannot be empty")
	}
	out, execErr := a.cfg.Executor.Execute(ctx, req.Code)
	if execErr != nil && ctx.Err() != nil {
		return "", ctx.Err()
	}

	start := time.Now()
	resp, err := a.cfg.Runtime.Generate(ctx, ai.GenerateRequest{
		Model: a.cfg.Model,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req, out, execErr)},
		},
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	text, err := resp.Text()
	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	a.log.Debug("analysis done", "model", a.cfg.Model, "exec_failed", execErr != nil, "duration", time.Since(start))
	return strings.TrimSpace(text), nil
}

func buildPrompt(req Request, out *sandbox.Outcome, execErr error) string {
	var sb strings.Builder
	if q := strings.TrimSpace(req.Query); q != "" {
		sb.WriteString("[QUESTION]\n")
		sb.WriteString(q)
		sb.WriteString("\n\n")
	}
	sb.WriteString("[SQL]\n")
	sb.WriteString(strings.TrimSpace(req.Code))
	sb.WriteString("\n\n")

	if execErr != nil {
		sb.WriteString("[ERROR]\n")
		sb.WriteString(execErr.Error())
		sb.WriteString("\n")
		return sb.String()
	}
	sb.WriteString("[OUTPUT]\n")
	wrote := false
	if out.HasResult() {
		fmt.Fprintf(&sb, "result:\n%s\n", clip(out.Result.Grid()))
		wrote = true
	}
	if out.Stdout != "" {
		fmt.Fprintf(&sb, "printed:\n%s\n", clip(out.Stdout))
		wrote = true
	}
	if !wrote {
		sb.WriteString("(the script produced no output)\n")
	}
	return sb.String()
}

// outputTokenLimit caps each output block sent for analysis.
const outputTokenLimit = 3000

func clip(s string) string {
	if utils.CountTokens(s) <= outputTokenLimit {
		return s
	}
	return utils.TruncateToTokenLimit(s, outputTokenLimit) + "\n(output truncated)"
}

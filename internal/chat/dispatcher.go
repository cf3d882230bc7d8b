// Package chat routes each inbound message to a history command, the
// correction loop or the question pipeline.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/datachat-cli/internal/ai"
	"github.com/KaramelBytes/datachat-cli/internal/analyst"
	"github.com/KaramelBytes/datachat-cli/internal/codegen"
	"github.com/KaramelBytes/datachat-cli/internal/history"
	"github.com/KaramelBytes/datachat-cli/internal/metrics"
	"github.com/KaramelBytes/datachat-cli/internal/sandbox"
)

type Generator interface {
	Generate(ctx context.Context, req codegen.Request) (string, error)
}

type Executor interface {
	Execute(ctx context.Context, code string) (*sandbox.Outcome, error)
}

type Analyst interface {
	Analyze(ctx context.Context, req analyst.Request) (string, error)
}

type ReplyKind string

const (
	KindInfo     ReplyKind = "info"
	KindHistory  ReplyKind = "history"
	KindCode     ReplyKind = "code"
	KindResult   ReplyKind = "result"
	KindAnalysis ReplyKind = "analysis"
	KindError    ReplyKind = "error"
)

// Reply is one outbound message.
type Reply struct {
	Kind ReplyKind `json:"kind"`
	Text string    `json:"text"`
}

type Config struct {
	Logger    *slog.Logger
	Generator Generator
	Executor  Executor
	// Analyst is optional. Without it no analysis reply is produced.
	Analyst           Analyst
	Preview           string
	CorrectionPhrases []string
	// RequestTimeout bounds each model call. Zero leaves only the caller's deadline.
	RequestTimeout time.Duration
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Generator == nil {
		return errors.New("generator is required")
	}
	if c.Executor == nil {
		return errors.New("executor is required")
	}
	if len(c.CorrectionPhrases) == 0 {
		return errors.New("at least one correction phrase is required")
	}
	return nil
}

type Dispatcher struct {
	log *slog.Logger
	cfg Config
}

func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate dispatcher config: %w", err)
	}
	return &Dispatcher{log: cfg.Logger, cfg: cfg}, nil
}

// Handle processes one message for the session and returns the replies in
// the order they should be shown. Failures become replies; Handle never
// returns an error.
func (d *Dispatcher) Handle(ctx context.Context, s *Session, msg string) []Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg = strings.TrimSpace(msg)
	if msg == "" {
		return nil
	}
	log := d.log.With("session", s.ID)

	switch ParseCommand(msg) {
	case CommandShowHistory:
		metrics.Turns.WithLabelValues("show_history").Inc()
		return []Reply{{Kind: KindHistory, Text: FormatHistory(s.Store.Turns())}}
	case CommandDeleteHistory:
		metrics.Turns.WithLabelValues("delete_history").Inc()
		if err := s.Store.Clear(ctx); err != nil {
			metrics.PersistErrors.Inc()
			log.Error("failed to persist cleared history", "error", err)
		}
		return []Reply{{Kind: KindInfo, Text: MsgHistoryCleared}}
	}

	if IsCorrection(msg, d.cfg.CorrectionPhrases) {
		metrics.Turns.WithLabelValues("correction").Inc()
		return d.correct(ctx, log, s, msg)
	}

	metrics.Turns.WithLabelValues("query").Inc()
	s.LastQuery = msg
	past := s.Store.Turns()
	d.appendTurn(ctx, log, s, history.RoleUser, msg)

	replies, err := d.pipeline(ctx, log, s, msg, past, "Generated SQL:", FormatOutcome)
	if err != nil {
		text := fmt.Sprintf("Error executing query: %v", err)
		d.appendTurn(ctx, log, s, history.RoleAssistant, text)
		replies = append(replies, Reply{Kind: KindError, Text: text})
	}
	return replies
}

// correct replays LastQuery through the pipeline. LastQuery is left as is so
// repeated corrections keep replaying the same question.
func (d *Dispatcher) correct(ctx context.Context, log *slog.Logger, s *Session, msg string) []Reply {
	if s.LastQuery == "" {
		return []Reply{{Kind: KindInfo, Text: MsgNoPreviousQuery}}
	}
	log.Info("replaying last query", "query", s.LastQuery)

	past := s.Store.Turns()
	d.appendTurn(ctx, log, s, history.RoleUser, msg)
	replies := []Reply{{Kind: KindInfo, Text: MsgApology}}

	more, err := d.pipeline(ctx, log, s, s.LastQuery, past, "Corrected SQL:", formatCorrected)
	replies = append(replies, more...)
	if err != nil {
		text := fmt.Sprintf("Error during correction: %v", err)
		d.appendTurn(ctx, log, s, history.RoleAssistant, text)
		replies = append(replies, Reply{Kind: KindError, Text: text})
	}
	return replies
}

// pipeline runs generate, sanitize, execute and analyze for one question.
// Replies produced before a failure are returned along with the error.
func (d *Dispatcher) pipeline(ctx context.Context, log *slog.Logger, s *Session, query string, past []history.Turn, codeLabel string, format func(*sandbox.Outcome) string) ([]Reply, error) {
	var replies []Reply

	genCtx, cancel := d.withRequestTimeout(ctx)
	raw, err := d.cfg.Generator.Generate(genCtx, codegen.Request{Query: query, Preview: d.cfg.Preview, History: past})
	cancel()
	if err != nil {
		metrics.GenerationOutcomes.WithLabelValues("error").Inc()
		log.Warn("generation failed", "error", err, "hint", ai.Hint(err))
		return replies, err
	}
	metrics.GenerationOutcomes.WithLabelValues("ok").Inc()

	code := codegen.Sanitize(raw)
	d.appendTurn(ctx, log, s, history.RoleAssistant, code)
	replies = append(replies, Reply{Kind: KindCode, Text: formatCode(codeLabel, code)})

	start := time.Now()
	outcome, err := d.cfg.Executor.Execute(ctx, code)
	metrics.ExecutionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExecutionOutcomes.WithLabelValues("error").Inc()
		log.Warn("execution failed", "error", err)
		return replies, err
	}
	result := format(outcome)
	metrics.ExecutionOutcomes.WithLabelValues(outcomeLabel(outcome)).Inc()
	d.appendTurn(ctx, log, s, history.RoleAssistant, result)
	replies = append(replies, Reply{Kind: KindResult, Text: result})

	if d.cfg.Analyst != nil {
		anCtx, cancel := d.withRequestTimeout(ctx)
		text, err := d.cfg.Analyst.Analyze(anCtx, analyst.Request{Query: query, Code: code})
		cancel()
		if err != nil {
			metrics.AnalysisOutcomes.WithLabelValues("error").Inc()
			log.Warn("analysis failed", "error", err)
		} else {
			metrics.AnalysisOutcomes.WithLabelValues("ok").Inc()
			replies = append(replies, Reply{Kind: KindAnalysis, Text: "Agent Analysis:\n" + text})
		}
	}
	return replies, nil
}

func (d *Dispatcher) withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.cfg.RequestTimeout)
}

// appendTurn records a turn. A persist failure is logged; the in-memory
// conversation keeps the turn and the turn carries on.
func (d *Dispatcher) appendTurn(ctx context.Context, log *slog.Logger, s *Session, role history.Role, content string) {
	if err := s.Store.Append(ctx, history.Turn{Role: role, Content: content}); err != nil {
		metrics.PersistErrors.Inc()
		log.Error("failed to persist turn", "role", role, "error", err)
	}
}

func outcomeLabel(o *sandbox.Outcome) string {
	switch {
	case o.HasResult():
		return "result"
	case strings.TrimSpace(o.Stdout) != "":
		return "stdout"
	}
	return "empty"
}

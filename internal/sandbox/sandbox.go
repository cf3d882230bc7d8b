// Package sandbox runs generated SQL scripts against the dataset without
// letting them change it.
package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/datachat-cli/internal/tabular"
)

// ResultName is the relation a script creates to hand back its primary result.
const ResultName = "result"

// denied holds leading keywords that escape the rollback-only transaction or
// reach outside the in-memory database.
var denied = map[string]bool{
	"BEGIN": true, "START": true, "COMMIT": true, "ROLLBACK": true, "ABORT": true, "END": true,
	"ATTACH": true, "DETACH": true, "USE": true,
	"COPY": true, "EXPORT": true, "IMPORT": true,
	"INSTALL": true, "LOAD": true, "FORCE": true,
	"PRAGMA": true, "SET": true, "RESET": true, "CALL": true,
	"PREPARE": true, "EXECUTE": true, "DEALLOCATE": true,
	"CHECKPOINT": true, "VACUUM": true,
}

// rowReturning holds leading keywords whose output is rendered into Stdout.
var rowReturning = map[string]bool{
	"SELECT": true, "WITH": true, "FROM": true, "VALUES": true, "TABLE": true,
	"SUMMARIZE": true, "DESCRIBE": true, "SHOW": true, "EXPLAIN": true,
	"PIVOT": true, "UNPIVOT": true, "PIVOT_WIDER": true, "PIVOT_LONGER": true,
}

type Config struct {
	Logger      *slog.Logger
	DB          *sql.DB
	Timeout     time.Duration
	MemoryLimit string
	Threads     int
	MaxRows     int
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.DB == nil {
		return errors.New("db is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRows <= 0 {
		c.MaxRows = 200
	}
	return nil
}

// Outcome is what one script execution produced.
type Outcome struct {
	Result *tabular.Table // the "result" relation, nil when the script made none
	Stdout string         // rendered output of row-returning statements
}

// HasResult reports whether the script populated the result slot.
func (o *Outcome) HasResult() bool { return o != nil && o.Result != nil }

// Sandbox executes scripts on dedicated connections inside transactions
// that are always rolled back.
type Sandbox struct {
	log *slog.Logger
	cfg Config
}

// New applies resource limits to the database and locks its configuration.
// The dataset must already be loaded: external access is disabled afterwards.
func New(ctx context.Context, cfg Config) (*Sandbox, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate sandbox config: %w", err)
	}
	var settings []string
	if cfg.MemoryLimit != "" {
		settings = append(settings, fmt.Sprintf("SET memory_limit = '%s'", strings.ReplaceAll(cfg.MemoryLimit, "'", "")))
	}
	if cfg.Threads > 0 {
		settings = append(settings, fmt.Sprintf("SET threads = %d", cfg.Threads))
	}
	settings = append(settings,
		"SET enable_external_access = false",
		"SET lock_configuration = true",
	)
	for _, stmt := range settings {
		if _, err := cfg.DB.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	return &Sandbox{log: cfg.Logger, cfg: cfg}, nil
}

// Execute runs the script and captures its output. Every failure, including
// a timeout, is returned as an *ExecError.
func (s *Sandbox) Execute(ctx context.Context, code string) (*Outcome, error) {
	stmts := Split(code)
	for _, stmt := range stmts {
		if kw := Keyword(stmt); denied[kw] {
			return nil, &ExecError{Statement: stmt, Err: fmt.Errorf("%w: %s", ErrStatementNotAllowed, kw)}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	start := time.Now()

	conn, err := s.cfg.DB.Conn(ctx)
	if err != nil {
		return nil, &ExecError{Err: fmt.Errorf("failed to get connection: %w", err)}
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &ExecError{Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Warn("sandbox rollback failed", "error", err)
		}
	}()

	var stdout []string
	for _, stmt := range stmts {
		out, err := s.run(ctx, tx, stmt)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			s.log.Debug("sandbox statement failed", "error", err, "duration", time.Since(start))
			return nil, &ExecError{Statement: stmt, Err: err}
		}
		if out != "" {
			stdout = append(stdout, out)
		}
	}

	result, err := s.readResult(ctx, tx)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &ExecError{Statement: "SELECT * FROM " + ResultName, Err: err}
	}
	s.log.Debug("sandbox executed", "statements", len(stmts), "has_result", result != nil, "duration", time.Since(start))
	return &Outcome{Result: result, Stdout: strings.Join(stdout, "\n")}, nil
}

func (s *Sandbox) run(ctx context.Context, tx *sql.Tx, stmt string) (string, error) {
	if !rowReturning[Keyword(stmt)] {
		_, err := tx.ExecContext(ctx, stmt)
		return "", err
	}
	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	t, err := tabular.Scan(rows, s.cfg.MaxRows)
	if err != nil {
		return "", err
	}
	return t.Render(), nil
}

// readResult loads the result relation if the script created one.
func (s *Sandbox) readResult(ctx context.Context, tx *sql.Tx) (*tabular.Table, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM (
			SELECT table_name FROM duckdb_tables() WHERE table_name = ?
			UNION ALL
			SELECT view_name FROM duckdb_views() WHERE view_name = ? AND NOT internal
		)`, ResultName, ResultName).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("failed to look up result: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	rows, err := tx.QueryContext(ctx, "SELECT * FROM "+ResultName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return tabular.Scan(rows, s.cfg.MaxRows)
}

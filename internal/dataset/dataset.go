// Package dataset loads the single tabular file every conversation runs against.
package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/KaramelBytes/datachat-cli/internal/tabular"
)

// Rename maps a differently spelled source column to its canonical name.
type Rename struct {
	From string
	To   string
}

type Config struct {
	Logger      *slog.Logger
	Path        string
	Table       string
	Renames     []Rename
	Required    []string
	PreviewRows int
	// Sheet selects the worksheet of an .xlsx file. Empty means the first one.
	Sheet string
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Path == "" {
		return errors.New("dataset path is required")
	}
	if c.Table == "" {
		c.Table = "df"
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = 5
	}
	return nil
}

// Column describes one column of the loaded table.
type Column struct {
	Name string
	Type string
}

// Dataset is the loaded table inside an in-memory DuckDB database.
type Dataset struct {
	log      *slog.Logger
	db       *sql.DB
	table    string
	path     string
	columns  []Column
	rowCount int64
	preview  string
}

// Load reads the file at cfg.Path into a fresh in-memory DuckDB table.
// Any failure here is fatal for the caller: nothing can be answered without data.
func Load(ctx context.Context, cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate dataset config: %w", err)
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", cfg.Path, err)
	}
	src := cfg.Path
	if strings.EqualFold(filepath.Ext(src), ".xlsx") {
		tmp, cleanup, err := xlsxToCSV(src, cfg.Sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dataset %s: %w", cfg.Path, err)
		}
		defer cleanup()
		src = tmp
	}
	reader, err := readerFor(src)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ds := &Dataset{log: cfg.Logger, db: db, table: cfg.Table, path: cfg.Path}

	create := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", QuoteIdent(cfg.Table), reader)
	if _, err := db.ExecContext(ctx, create); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to parse dataset %s: %w", cfg.Path, err)
	}
	if err := ds.refreshColumns(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := ds.applyRenames(ctx, cfg.Renames); err != nil {
		db.Close()
		return nil, err
	}
	if err := ds.checkRequired(cfg.Required); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM "+QuoteIdent(cfg.Table)).Scan(&ds.rowCount); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	if err := ds.buildPreview(ctx, cfg.PreviewRows); err != nil {
		db.Close()
		return nil, err
	}

	ds.log.Info("dataset loaded", "path", cfg.Path, "table", cfg.Table, "rows", ds.rowCount, "columns", len(ds.columns))
	return ds, nil
}

func readerFor(path string) (string, error) {
	lit := quoteLiteral(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", "":
		return fmt.Sprintf("read_csv_auto(%s)", lit), nil
	case ".tsv":
		return fmt.Sprintf("read_csv_auto(%s, delim='\\t')", lit), nil
	case ".parquet", ".pq":
		return fmt.Sprintf("read_parquet(%s)", lit), nil
	case ".json", ".ndjson", ".jsonl":
		return fmt.Sprintf("read_json_auto(%s)", lit), nil
	}
	return "", fmt.Errorf("unsupported dataset format: %s", filepath.Ext(path))
}

func (d *Dataset) refreshColumns(ctx context.Context) error {
	rows, err := d.db.QueryContext(ctx,
		`SELECT column_name, data_type FROM duckdb_columns() WHERE table_name = ? ORDER BY column_index`, d.table)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	d.columns = d.columns[:0]
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return fmt.Errorf("failed to scan column row: %w", err)
		}
		d.columns = append(d.columns, c)
	}
	return rows.Err()
}

func (d *Dataset) applyRenames(ctx context.Context, renames []Rename) error {
	changed := false
	for _, r := range renames {
		if r.From == "" || r.To == "" || r.From == r.To || !d.HasColumn(r.From) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", QuoteIdent(d.table), QuoteIdent(r.From), QuoteIdent(r.To))
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to rename column %q: %w", r.From, err)
		}
		d.log.Debug("renamed column", "from", r.From, "to", r.To)
		changed = true
	}
	if changed {
		return d.refreshColumns(ctx)
	}
	return nil
}

func (d *Dataset) checkRequired(required []string) error {
	var missing []string
	for _, name := range required {
		if !d.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("dataset %s is missing required columns: %s", d.path, strings.Join(missing, ", "))
	}
	return nil
}

func (d *Dataset) buildPreview(ctx context.Context, n int) error {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", QuoteIdent(d.table), n))
	if err != nil {
		return fmt.Errorf("failed to query preview: %w", err)
	}
	defer rows.Close()
	t, err := tabular.Scan(rows, n)
	if err != nil {
		return err
	}
	d.preview = t.Grid()
	return nil
}

// HasColumn reports whether a column with exactly this name exists.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (d *Dataset) DB() *sql.DB { return d.db }

func (d *Dataset) Table() string { return d.table }

func (d *Dataset) Path() string { return d.path }

func (d *Dataset) RowCount() int64 { return d.rowCount }

func (d *Dataset) Columns() []Column { return append([]Column(nil), d.columns...) }

func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.Name
	}
	return out
}

// Preview returns the first rows rendered as a text table.
func (d *Dataset) Preview() string { return d.preview }

// Schema renders one "name TYPE" line per column.
func (d *Dataset) Schema() string {
	var sb strings.Builder
	for _, c := range d.columns {
		fmt.Fprintf(&sb, "%s %s\n", QuoteIdent(c.Name), c.Type)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (d *Dataset) Close() error { return d.db.Close() }

// QuoteIdent quotes a DuckDB identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

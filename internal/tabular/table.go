// Package tabular scans query rows into a small in-memory table and renders it as text.
package tabular

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Table is a fully materialized query result.
type Table struct {
	Columns   []string
	Rows      [][]any
	Truncated bool // more rows existed than were kept
}

// Scan reads rows into a Table, keeping at most maxRows rows (maxRows <= 0 keeps all).
// The caller still owns rows and must close it.
func Scan(rows *sql.Rows, maxRows int) (*Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	t := &Table{Columns: columns}
	for rows.Next() {
		if maxRows > 0 && len(t.Rows) >= maxRows {
			t.Truncated = true
			break
		}
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return t, nil
}

// IsScalar reports whether the table holds exactly one value.
func (t *Table) IsScalar() bool {
	return t != nil && len(t.Columns) == 1 && len(t.Rows) == 1 && !t.Truncated
}

// Render formats the table for display. A scalar renders as its bare value.
func (t *Table) Render() string {
	if t == nil || len(t.Columns) == 0 {
		return ""
	}
	if t.IsScalar() {
		return FormatValue(t.Rows[0][0])
	}
	return t.Grid()
}

// Grid formats the table as a bordered text grid regardless of its shape.
func (t *Table) Grid() string {
	if t == nil || len(t.Columns) == 0 {
		return ""
	}
	var sb strings.Builder
	tw := tablewriter.NewWriter(&sb)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeader(t.Columns)
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		tw.Append(cells)
	}
	tw.Render()
	out := strings.TrimRight(sb.String(), "\n")
	if t.Truncated {
		out += fmt.Sprintf("\n(showing first %d rows)", len(t.Rows))
	}
	return out
}

// FormatValue renders a single scanned value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	default:
		return fmt.Sprint(x)
	}
}

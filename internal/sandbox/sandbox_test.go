package sandbox_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datachat-cli/internal/logging"
	"github.com/KaramelBytes/datachat-cli/internal/sandbox"
)

func newSandbox(t *testing.T, mutate func(*sandbox.Config)) *sandbox.Sandbox {
	t.Helper()
	ctx := context.Background()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE df AS SELECT * FROM (VALUES
		('2023Q1', 'Malignant', 12),
		('2023Q1', 'Benign', 30),
		('2023Q2', 'Malignant', 9)
	) t(YQ, Diagnosis, Cases)`)
	require.NoError(t, err)

	cfg := sandbox.Config{
		Logger:      logging.Discard(),
		DB:          db,
		Timeout:     5 * time.Second,
		MemoryLimit: "256MB",
		Threads:     1,
		MaxRows:     50,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	sb, err := sandbox.New(ctx, cfg)
	require.NoError(t, err)
	return sb
}

func TestExecuteResultSlot(t *testing.T) {
	sb := newSandbox(t, nil)
	out, err := sb.Execute(context.Background(), "CREATE TEMP TABLE result AS SELECT 42")
	require.NoError(t, err)
	require.True(t, out.HasResult())
	require.Equal(t, "42", out.Result.Render())
	require.Empty(t, out.Stdout)
}

func TestExecuteCapturesStdout(t *testing.T) {
	sb := newSandbox(t, nil)
	out, err := sb.Execute(context.Background(), "SELECT 'hello'")
	require.NoError(t, err)
	require.False(t, out.HasResult())
	require.Equal(t, "hello", out.Stdout)
}

func TestExecuteResultViewAndStdout(t *testing.T) {
	sb := newSandbox(t, nil)
	out, err := sb.Execute(context.Background(), `
		CREATE VIEW result AS SELECT Diagnosis, sum(Cases) AS total FROM df GROUP BY Diagnosis ORDER BY Diagnosis;
		SELECT count(*) FROM df;`)
	require.NoError(t, err)
	require.True(t, out.HasResult())
	require.Equal(t, []string{"Diagnosis", "total"}, out.Result.Columns)
	require.Len(t, out.Result.Rows, 2)
	require.Contains(t, out.Result.Render(), "Malignant")
	require.Equal(t, "3", out.Stdout)
}

func TestExecuteNoOutput(t *testing.T) {
	sb := newSandbox(t, nil)
	out, err := sb.Execute(context.Background(), "CREATE TEMP TABLE scratch AS SELECT 1 AS x")
	require.NoError(t, err)
	require.False(t, out.HasResult())
	require.Empty(t, out.Stdout)

	out, err = sb.Execute(context.Background(), "")
	require.NoError(t, err)
	require.False(t, out.HasResult())
}

func TestExecuteErrorCarriesStatement(t *testing.T) {
	sb := newSandbox(t, nil)
	_, err := sb.Execute(context.Background(), "SELECT 1; SELECT missing_column FROM df")
	var execErr *sandbox.ExecError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "SELECT missing_column FROM df", execErr.Statement)
	require.Contains(t, err.Error(), "missing_column")
}

func TestExecuteDeniedStatements(t *testing.T) {
	sb := newSandbox(t, nil)
	for _, code := range []string{
		"ATTACH 'other.db'",
		"SELECT 1; COPY df TO 'out.csv'",
		"INSTALL httpfs",
		"SET threads = 8",
		"COMMIT",
		"PRAGMA database_list",
		"PREPARE p AS COMMIT; EXECUTE p; DROP TABLE df",
		"EXECUTE p",
		"DEALLOCATE p",
	} {
		_, err := sb.Execute(context.Background(), code)
		require.ErrorIs(t, err, sandbox.ErrStatementNotAllowed, code)
	}
}

func TestExecuteNeverMutatesDataset(t *testing.T) {
	sb := newSandbox(t, nil)
	ctx := context.Background()

	out, err := sb.Execute(ctx, "DELETE FROM df; CREATE TEMP TABLE result AS SELECT count(*) FROM df")
	require.NoError(t, err)
	require.Equal(t, "0", out.Result.Render())

	_, err = sb.Execute(ctx, "DROP TABLE df")
	require.NoError(t, err)

	out, err = sb.Execute(ctx, "CREATE TEMP TABLE result AS SELECT count(*) FROM df")
	require.NoError(t, err)
	require.Equal(t, "3", out.Result.Render())
}

func TestExecuteBlocksExternalAccess(t *testing.T) {
	sb := newSandbox(t, nil)
	_, err := sb.Execute(context.Background(), "SELECT * FROM read_csv_auto('/etc/hosts')")
	var execErr *sandbox.ExecError
	require.ErrorAs(t, err, &execErr)
}

func TestExecuteTimeout(t *testing.T) {
	sb := newSandbox(t, func(c *sandbox.Config) { c.Timeout = 100 * time.Millisecond })
	_, err := sb.Execute(context.Background(), "SELECT sum(i) FROM range(100000000000) t(i)")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecuteRowCap(t *testing.T) {
	sb := newSandbox(t, func(c *sandbox.Config) { c.MaxRows = 2 })
	out, err := sb.Execute(context.Background(), "SELECT * FROM range(10)")
	require.NoError(t, err)
	require.Contains(t, out.Stdout, "(showing first 2 rows)")
}

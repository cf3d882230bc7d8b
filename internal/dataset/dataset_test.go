package dataset_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/datachat-cli/internal/dataset"
	"github.com/KaramelBytes/datachat-cli/internal/logging"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `YQ (YearQuarter),Region,Diagnosis,Cases
2023Q1,North,Malignant,12
2023Q1,South,Benign,30
2023Q2,North,Malignant,9
2023Q2,South,Benign,25
2023Q3,North,Malignant,14
2023Q3,South,Benign,31
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadRenamesAndPreviews(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "cases.csv", sampleCSV)

	ds, err := dataset.Load(ctx, dataset.Config{
		Logger:      logging.Discard(),
		Path:        path,
		Renames:     []dataset.Rename{{From: "YQ (YearQuarter)", To: "YQ"}},
		Required:    []string{"YQ", "Cases"},
		PreviewRows: 3,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })

	require.Equal(t, "df", ds.Table())
	require.Equal(t, []string{"YQ", "Region", "Diagnosis", "Cases"}, ds.ColumnNames())
	require.False(t, ds.HasColumn("YQ (YearQuarter)"))
	require.EqualValues(t, 6, ds.RowCount())
	require.Contains(t, ds.Preview(), "Malignant")
	require.NotContains(t, ds.Preview(), "2023Q3")
	require.Contains(t, ds.Schema(), `"Cases" BIGINT`)

	var total int64
	require.NoError(t, ds.DB().QueryRowContext(ctx, `SELECT sum(Cases) FROM df WHERE Diagnosis = 'Malignant'`).Scan(&total))
	require.EqualValues(t, 35, total)
}

func TestLoadTSV(t *testing.T) {
	path := writeFile(t, "cases.tsv", "a\tb\n1\tx\n2\ty\n")
	ds, err := dataset.Load(context.Background(), dataset.Config{Logger: logging.Discard(), Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	require.Equal(t, []string{"a", "b"}, ds.ColumnNames())
}

func TestLoadMissingRequiredColumn(t *testing.T) {
	path := writeFile(t, "cases.csv", sampleCSV)
	_, err := dataset.Load(context.Background(), dataset.Config{
		Logger:   logging.Discard(),
		Path:     path,
		Required: []string{"Cases", "Stage"},
	})
	require.ErrorContains(t, err, "missing required columns: Stage")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := dataset.Load(context.Background(), dataset.Config{
		Logger: logging.Discard(),
		Path:   filepath.Join(t.TempDir(), "nope.csv"),
	})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "cases.xlsx", "not really")
	_, err := dataset.Load(context.Background(), dataset.Config{Logger: logging.Discard(), Path: path})
	require.ErrorContains(t, err, "unsupported dataset format")
}

func TestQuoteIdent(t *testing.T) {
	require.Equal(t, `"YQ (YearQuarter)"`, dataset.QuoteIdent("YQ (YearQuarter)"))
	require.Equal(t, `"a""b"`, dataset.QuoteIdent(`a"b`))
}

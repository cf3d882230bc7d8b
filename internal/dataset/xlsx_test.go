package dataset

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datachat-cli/internal/logging"
)

// writeXLSX builds a minimal two-sheet workbook. The second sheet's
// relationship target is absolute, as some writers emit it.
func writeXLSX(t *testing.T) string {
	t.Helper()
	parts := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Cases" sheetId="1" r:id="rId1"/><sheet name="Notes" sheetId="2" r:id="rId2"/></sheets>
</workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="worksheet" Target="/xl/worksheets/sheet2.xml"/>
</Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<si><t>YQ (YearQuarter)</t></si><si><t>Cases</t></si><si><r><t>2023</t></r><r><t>Q1</t></r></si><si><t>note</t></si>
</sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>12</v></c></row>
<row r="3"><c r="A3" t="inlineStr"><is><t>2023Q2</t></is></c></row>
</sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="B1" t="s"><v>3</v></c></row>
</sheetData></worksheet>`,
	}

	p := filepath.Join(t.TempDir(), "cases.xlsx")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestXLSXToCSV(t *testing.T) {
	src := writeXLSX(t)

	out, cleanup, err := xlsxToCSV(src, "")
	require.NoError(t, err)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "YQ (YearQuarter),Cases\n2023Q1,12\n2023Q2,\n", string(b))
	cleanup()
	_, err = os.Stat(out)
	require.ErrorIs(t, err, os.ErrNotExist)

	out, cleanup, err = xlsxToCSV(src, "notes")
	require.NoError(t, err)
	defer cleanup()
	b, err = os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, ",note\n", string(b))

	_, _, err = xlsxToCSV(src, "Missing")
	require.ErrorContains(t, err, `sheet "Missing" not found; available sheets: Cases, Notes`)
}

func TestLoadXLSX(t *testing.T) {
	ds, err := Load(context.Background(), Config{
		Logger:  logging.Discard(),
		Path:    writeXLSX(t),
		Renames: []Rename{{From: "YQ (YearQuarter)", To: "YQ"}},
	})
	require.NoError(t, err)
	defer ds.Close()

	require.Equal(t, []string{"YQ", "Cases"}, ds.ColumnNames())
	require.EqualValues(t, 2, ds.RowCount())
}

func TestColumnIndex(t *testing.T) {
	tests := map[string]int{"A1": 0, "B7": 1, "Z3": 25, "AA10": 26, "ab2": 27, "12": -1, "": -1}
	for ref, want := range tests {
		require.Equal(t, want, columnIndex(ref), ref)
	}
}

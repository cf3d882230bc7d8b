package dataset

import (
	"archive/zip"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// xlsxToCSV extracts one worksheet into a temporary CSV so DuckDB's CSV
// sniffer can infer column types. An empty sheet name selects the first sheet.
// The returned cleanup removes the temporary file.
func xlsxToCSV(src, sheet string) (string, func(), error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return "", nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	book := workbook{files: map[string]*zip.File{}}
	for _, f := range zr.File {
		book.files[f.Name] = f
	}
	part, err := book.sheetPart(sheet)
	if err != nil {
		return "", nil, err
	}
	shared, err := book.sharedStrings()
	if err != nil {
		return "", nil, err
	}

	tmp, err := os.CreateTemp("", "datachat-*.csv")
	if err != nil {
		return "", nil, fmt.Errorf("create temp csv: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if err := book.copyRows(part, shared, csv.NewWriter(tmp)); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp csv: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

type workbook struct {
	files map[string]*zip.File
}

func (b workbook) open(name string) (io.ReadCloser, error) {
	f, ok := b.files[name]
	if !ok {
		return nil, fmt.Errorf("xlsx part %s: %w", name, os.ErrNotExist)
	}
	return f.Open()
}

type sheetRef struct {
	Name string `xml:"name,attr"`
	RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

// sheetPart resolves a sheet name to its worksheet part through the workbook
// relationships.
func (b workbook) sheetPart(name string) (string, error) {
	var wb struct {
		Sheets []sheetRef `xml:"sheets>sheet"`
	}
	if err := b.decode("xl/workbook.xml", &wb); err != nil {
		return "", err
	}
	if len(wb.Sheets) == 0 {
		return "", errors.New("xlsx workbook has no sheets")
	}

	ref := wb.Sheets[0]
	if name != "" {
		found := false
		names := make([]string, 0, len(wb.Sheets))
		for _, s := range wb.Sheets {
			names = append(names, s.Name)
			if strings.EqualFold(s.Name, name) {
				ref, found = s, true
			}
		}
		if !found {
			return "", fmt.Errorf("sheet %q not found; available sheets: %s", name, strings.Join(names, ", "))
		}
	}

	var rels struct {
		Items []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := b.decode("xl/_rels/workbook.xml.rels", &rels); err != nil {
		return "", err
	}
	for _, r := range rels.Items {
		if r.ID == ref.RID {
			target := strings.TrimPrefix(r.Target, "/")
			if !strings.HasPrefix(target, "xl/") {
				target = path.Join("xl", target)
			}
			return target, nil
		}
	}
	return "", fmt.Errorf("sheet %q has no worksheet part", ref.Name)
}

func (b workbook) decode(name string, v any) error {
	rc, err := b.open(name)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// sharedStrings returns the string table. Rich-text runs are concatenated.
func (b workbook) sharedStrings() ([]string, error) {
	if _, ok := b.files["xl/sharedStrings.xml"]; !ok {
		return nil, nil
	}
	var sst struct {
		Items []struct {
			T    string `xml:"t"`
			Runs []struct {
				T string `xml:"t"`
			} `xml:"r"`
		} `xml:"si"`
	}
	if err := b.decode("xl/sharedStrings.xml", &sst); err != nil {
		return nil, err
	}
	out := make([]string, len(sst.Items))
	for i, si := range sst.Items {
		if len(si.Runs) == 0 {
			out[i] = si.T
			continue
		}
		var sb strings.Builder
		for _, r := range si.Runs {
			sb.WriteString(r.T)
		}
		out[i] = sb.String()
	}
	return out, nil
}

type xlsxCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline string `xml:"is>t"`
}

func (c xlsxCell) text(shared []string) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(c.Value)
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "inlineStr":
		return c.Inline
	case "b":
		if c.Value == "1" {
			return "true"
		}
		return "false"
	}
	return c.Value
}

// copyRows streams the worksheet rows into w. Rows are padded to the header
// width so the CSV stays rectangular.
func (b workbook) copyRows(part string, shared []string, w *csv.Writer) error {
	rc, err := b.open(part)
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	width := -1
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", part, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "row" {
			continue
		}
		var row struct {
			Cells []xlsxCell `xml:"c"`
		}
		if err := dec.DecodeElement(&row, &start); err != nil {
			return fmt.Errorf("parse %s: %w", part, err)
		}

		var record []string
		for i, c := range row.Cells {
			col := columnIndex(c.Ref)
			if col < 0 {
				col = i
			}
			for len(record) <= col {
				record = append(record, "")
			}
			record[col] = c.text(shared)
		}
		if width < 0 {
			if len(record) == 0 {
				continue
			}
			width = len(record)
		}
		for len(record) < width {
			record = append(record, "")
		}
		if err := w.Write(record[:width]); err != nil {
			return fmt.Errorf("write temp csv: %w", err)
		}
	}
	if width < 0 {
		return errors.New("xlsx sheet is empty")
	}
	w.Flush()
	return w.Error()
}

// columnIndex turns the letters of a cell reference like "AB12" into a
// zero-based column index. It returns -1 when ref has no letters.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, r := range strings.ToUpper(ref) {
		if r < 'A' || r > 'Z' {
			break
		}
		idx = idx*26 + int(r-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\ufeff"

// ReadFile loads a wide table from disk, choosing the reader by extension.
// sheet selects an XLSX worksheet; empty means the first one.
func ReadFile(path, sheet string) (*WideTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, sheet)
	default:
		return ReadCSV(path)
	}
}

// ReadCSV loads a comma- or tab-separated file.
func ReadCSV(path string) (*WideTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := ','
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		delim = '\t'
	}
	return readDelimited(filepath.Base(path), f, delim)
}

// ReadCSVFrom parses CSV content from r.
func ReadCSVFrom(name string, r io.Reader) (*WideTable, error) {
	return readDelimited(name, r, ',')
}

func readDelimited(name string, src io.Reader, delim rune) (*WideTable, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &WideTable{Name: name}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &WideTable{Name: name, Header: cleanHeader(header)}
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		if blankRow(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// ReadXLSX loads one worksheet of an Excel workbook.
func ReadXLSX(path, sheet string) (*WideTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return &WideTable{Name: filepath.Base(path)}, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	t := &WideTable{Name: filepath.Base(path)}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = cleanHeader(rows[0])
	for _, rec := range rows[1:] {
		if blankRow(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func cleanHeader(h []string) []string {
	out := make([]string, len(h))
	for i, c := range h {
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

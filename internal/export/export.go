// Package export writes long-form tables as CSV, JSON or XLSX.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/KaramelBytes/ineqdash/internal/utils"
	"github.com/xuri/excelize/v2"
)

// Format is an output encoding.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, XLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q (want csv, json or xlsx)", s)
}

// FormatFromPath infers the format from a file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return CSV
}

// Write encodes t to w. Absent values are empty cells (CSV/XLSX) or null (JSON).
func Write(w io.Writer, t *dataset.Table, f Format) error {
	switch f {
	case JSON:
		return writeJSON(w, t)
	case XLSX:
		return writeXLSX(w, t)
	default:
		return writeCSV(w, t)
	}
}

// WriteFile encodes t into path atomically, inferring the format from the extension.
func WriteFile(path string, t *dataset.Table) error {
	var buf bytes.Buffer
	if err := Write(&buf, t, FormatFromPath(path)); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func writeCSV(w io.Writer, t *dataset.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range t.Records {
		if err := cw.Write(t.Row(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, t *dataset.Table) error {
	recs := t.Records
	if recs == nil {
		recs = []dataset.Record{}
	}
	b, err := utils.PrettyJSON(recs)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, t *dataset.Table) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := sheetName(t.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	header := make([]any, 0, len(t.Schema))
	for _, c := range t.Columns() {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range t.Records {
		row := make([]any, len(t.Schema))
		for j, c := range t.Schema {
			row[j] = cellValue(r, c.Field)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// cellValue keeps numbers numeric in spreadsheets.
func cellValue(r dataset.Record, f dataset.Field) any {
	switch f {
	case dataset.FieldEntity:
		return r.Entity
	case dataset.FieldCode:
		return r.Code
	case dataset.FieldSeries:
		return r.Series
	case dataset.FieldSeriesCode:
		return r.SeriesCode
	case dataset.FieldYear:
		return r.Year
	default:
		if !r.Value.Valid {
			return nil
		}
		return r.Value.Float
	}
}

// sheetName fits Excel's 31-character limit and forbidden characters.
func sheetName(name string) string {
	if name == "" {
		return "data"
	}
	s := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	if len([]rune(s)) > 31 {
		s = string([]rune(s)[:31])
	}
	return s
}

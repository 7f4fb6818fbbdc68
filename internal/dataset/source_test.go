package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSVStripsBOMAndBlankRows(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "gini_data.csv")
	content := "\ufeffCountry Name,Country Code,2000,2001\n" +
		"Chile,CHL,52.8,\n" +
		",,,\n" +
		"Norway,NOR,..,25.8\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tb, err := ReadCSV(p)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tb.Header[0] != "Country Name" {
		t.Fatalf("BOM not stripped: %q", tb.Header[0])
	}
	if tb.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tb.Len())
	}
	if !tb.Missing(0, 3) || !tb.Missing(1, 2) || tb.Missing(1, 3) {
		t.Fatal("unexpected missing cells")
	}
}

func TestReadCSVFromEmpty(t *testing.T) {
	tb, err := ReadCSVFrom("empty.csv", strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadCSVFrom: %v", err)
	}
	if tb.Len() != 0 || len(tb.Header) != 0 {
		t.Fatalf("expected empty table, got %+v", tb)
	}
}

func TestReadXLSX(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "wiid.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"country", "c3", "year", "q1", "q2", "q3", "q4", "q5"},
		{"Brazil", "BRA", 2015, 3.4, 7.9, 12.6, 19.4, 56.7},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SaveAs(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = f.Close()

	tb, err := ReadFile(p, "")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if tb.Len() != 1 || tb.Index("q5") != 7 {
		t.Fatalf("unexpected table %+v", tb)
	}
	if got := tb.Cell(0, 0); got != "Brazil" {
		t.Fatalf("cell = %q", got)
	}
}

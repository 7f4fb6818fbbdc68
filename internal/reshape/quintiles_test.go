package reshape

import (
	"errors"
	"testing"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
)

func wiidWide() *dataset.WideTable {
	return &dataset.WideTable{
		Name:   "quintiles",
		Header: []string{"country", "c3", "year", "q1", "q2", "q3", "q4", "q5", "palma", "ratio_top20bottom20"},
		Rows: [][]string{
			{"Norway", "NOR", "2015", "9.5", "14", "17.5", "22", "37", "1.6", "3.9"},
			{"Norway", "NOR", "2016.0", "9.4", "", "17.4", "22.1", "37.1", "", ""},
			{"Nowhere", "NWH", "unknown", "1", "2", "3", "4", "90", "", ""},
		},
	}
}

func wiidOpts() QuintileOptions {
	return QuintileOptions{
		Dataset:      "quintiles",
		EntityColumn: "country",
		CodeColumn:   "c3",
		YearColumn:   "year",
		ShareColumns: []string{"q1", "q2", "q3", "q4", "q5"},
		PalmaColumn:  "palma",
		RatioColumn:  "ratio_top20bottom20",
	}
}

func TestQuintilesExtract(t *testing.T) {
	rows, st, err := Quintiles(wiidWide(), wiidOpts())
	if err != nil {
		t.Fatalf("Quintiles: %v", err)
	}
	if len(rows) != 2 || st.Invalid != 1 {
		t.Fatalf("expected 2 rows and 1 invalid, got %d / %+v", len(rows), st)
	}
	if !rows[0].Complete() || rows[0].Shares[4].Float != 37 || rows[0].Palma.Float != 1.6 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Year != 2016 || rows[1].Complete() {
		t.Fatalf("second row should be 2016 and incomplete: %+v", rows[1])
	}
}

func TestQuintilesNeedFiveShares(t *testing.T) {
	opt := wiidOpts()
	opt.ShareColumns = opt.ShareColumns[:4]
	_, _, err := Quintiles(wiidWide(), opt)
	var ce *dataset.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestQuintilesMissingColumn(t *testing.T) {
	opt := wiidOpts()
	opt.YearColumn = "yr"
	_, _, err := Quintiles(wiidWide(), opt)
	var ce *dataset.ConfigError
	if !errors.As(err, &ce) || ce.Column != "yr" {
		t.Fatalf("expected ConfigError for yr, got %v", err)
	}
}

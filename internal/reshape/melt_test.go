package reshape

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
)

func giniWide() *dataset.WideTable {
	return &dataset.WideTable{
		Name:   "gini",
		Header: []string{"Country Name", "Country Code", "2019", "2020", "2021"},
		Rows: [][]string{
			{"Germany", "DEU", "31.7", "", "32.4"},
			{"Brazil", "BRA", "53.5", "48.9", ".."},
		},
	}
}

func giniOpts(mode MissingMode) Options {
	return Options{
		Dataset:      "gini",
		EntityColumn: "Country Name",
		CodeColumn:   "Country Code",
		YearRule:     YearExact,
		Missing:      mode,
		ValueName:    "Gini",
	}
}

func TestMeltKeepIsComplete(t *testing.T) {
	tbl, st, err := Melt(giniWide(), giniOpts(KeepMissing))
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	if len(tbl.Records) != 2*3 {
		t.Fatalf("expected 6 records, got %d", len(tbl.Records))
	}
	if st.Missing != 2 || st.Dropped != 0 || st.Cells != 6 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	seen := map[string]bool{}
	for _, r := range tbl.Records {
		seen[fmt.Sprintf("%s/%d", r.Code, r.Year)] = true
	}
	for _, code := range []string{"DEU", "BRA"} {
		for _, y := range []int{2019, 2020, 2021} {
			if !seen[fmt.Sprintf("%s/%d", code, y)] {
				t.Fatalf("missing pair %s/%d", code, y)
			}
		}
	}
	for _, r := range tbl.Records {
		if r.Code == "DEU" && r.Year == 2020 && r.Value.Valid {
			t.Fatalf("blank cell should be absent, got %v", r.Value)
		}
		if r.Code == "DEU" && r.Year == 2019 && r.Value.Float != 31.7 {
			t.Fatalf("expected 31.7, got %v", r.Value)
		}
	}
}

func TestMeltDropCountsMissing(t *testing.T) {
	tbl, st, err := Melt(giniWide(), giniOpts(DropMissing))
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	if len(tbl.Records) != 4 || st.Dropped != 2 {
		t.Fatalf("expected 4 records and 2 dropped, got %d / %+v", len(tbl.Records), st)
	}
	for _, r := range tbl.Records {
		if !r.Value.Valid {
			t.Fatalf("drop mode emitted an absent value: %+v", r)
		}
	}
}

func TestMeltRejectsNonYearColumn(t *testing.T) {
	w := giniWide()
	w.Header[4] = "Notes"
	_, _, err := Melt(w, giniOpts(KeepMissing))
	var ce *dataset.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ce.Column != "Notes" {
		t.Fatalf("expected offending column Notes, got %q", ce.Column)
	}
}

func TestMeltIgnoreColumns(t *testing.T) {
	w := giniWide()
	w.Header[4] = "Notes"
	opt := giniOpts(KeepMissing)
	opt.IgnoreColumns = []string{"Notes"}
	tbl, st, err := Melt(w, opt)
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	if st.YearColumns != 2 || len(tbl.Records) != 4 {
		t.Fatalf("expected 2 year columns / 4 records, got %+v / %d", st, len(tbl.Records))
	}
}

func TestMeltMissingIDColumn(t *testing.T) {
	opt := giniOpts(KeepMissing)
	opt.CodeColumn = "ISO3"
	_, _, err := Melt(giniWide(), opt)
	var ce *dataset.ConfigError
	if !errors.As(err, &ce) || ce.Column != "ISO3" {
		t.Fatalf("expected ConfigError for ISO3, got %v", err)
	}
}

func TestMeltYearBounds(t *testing.T) {
	opt := giniOpts(KeepMissing)
	opt.YearMin, opt.YearMax = 2020, 2020
	tbl, _, err := Melt(giniWide(), opt)
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	for _, r := range tbl.Records {
		if r.Year != 2020 {
			t.Fatalf("year outside bounds: %d", r.Year)
		}
	}
	if len(tbl.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(tbl.Records))
	}
}

func TestParseYearRules(t *testing.T) {
	cases := []struct {
		name string
		rule YearRule
		want int
		ok   bool
	}{
		{"1998", YearExact, 1998, true},
		{" 2001 ", YearExact, 2001, true},
		{"1998 [YR1998]", YearExact, 0, false},
		{"1998 [YR1998]", YearExtract, 1998, true},
		{"YR2015", YearExtract, 2015, true},
		{"Series Name", YearExtract, 0, false},
	}
	for _, c := range cases {
		got, ok := ParseYear(c.name, c.rule)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseYear(%q,%s) = %d,%v want %d,%v", c.name, c.rule, got, ok, c.want, c.ok)
		}
	}
}

// indicatorsWide builds a World-Bank-style export: 3 series per country with
// YR-tagged year columns.
func indicatorsWide(countries []string, years int) *dataset.WideTable {
	header := []string{"Series Name", "Series Code", "Country Name", "Country Code"}
	for y := 0; y < years; y++ {
		header = append(header, fmt.Sprintf("%d [YR%d]", 2000+y, 2000+y))
	}
	series := [][2]string{
		{"GDP growth (annual %)", "NY.GDP.MKTP.KD.ZG"},
		{"Inflation, GDP deflator (annual %)", "NY.GDP.DEFL.KD.ZG"},
		{"Population growth (annual %)", "SP.POP.GROW"},
	}
	w := &dataset.WideTable{Name: "indicators", Header: header}
	for ci, c := range countries {
		for si, s := range series {
			row := []string{s[0], s[1], c, strings.ToUpper(c[:3])}
			for y := 0; y < years; y++ {
				row = append(row, fmt.Sprintf("%d.%d", ci+si, y))
			}
			w.Rows = append(w.Rows, row)
		}
	}
	return w
}

func indicatorOpts() Options {
	return Options{
		Dataset:          "indicators",
		EntityColumn:     "Country Name",
		CodeColumn:       "Country Code",
		SeriesColumn:     "Series Name",
		SeriesCodeColumn: "Series Code",
		YearRule:         YearExtract,
		Missing:          DropMissing,
		ValueName:        "Value",
	}
}

func TestMeltSeriesPreFilterMatchesPostFilter(t *testing.T) {
	w := indicatorsWide([]string{"Alpha", "Beta"}, 10)

	opt := indicatorOpts()
	opt.SeriesFilter = []string{"NY.GDP.DEFL.KD.ZG"}
	pre, _, err := Melt(w, opt)
	if err != nil {
		t.Fatalf("Melt pre: %v", err)
	}
	all, _, err := Melt(w, indicatorOpts())
	if err != nil {
		t.Fatalf("Melt all: %v", err)
	}
	var post []dataset.Record
	for _, r := range all.Records {
		if r.SeriesCode == "NY.GDP.DEFL.KD.ZG" {
			post = append(post, r)
		}
	}
	if len(pre.Records) != 20 || len(post) != len(pre.Records) {
		t.Fatalf("expected 20 records either way, got pre=%d post=%d", len(pre.Records), len(post))
	}
	for i := range post {
		if pre.Records[i] != post[i] {
			t.Fatalf("record %d differs: %+v vs %+v", i, pre.Records[i], post[i])
		}
	}
	if pre.Records[0].Year != 2000 || pre.Records[9].Year != 2009 {
		t.Fatalf("years not extracted: %d..%d", pre.Records[0].Year, pre.Records[9].Year)
	}
}

func TestMeltSeriesFilterByName(t *testing.T) {
	w := indicatorsWide([]string{"Alpha"}, 2)
	opt := indicatorOpts()
	opt.SeriesFilter = []string{"Population growth (annual %)"}
	tbl, _, err := Melt(w, opt)
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	if len(tbl.Records) != 2 || tbl.Records[0].SeriesCode != "SP.POP.GROW" {
		t.Fatalf("unexpected records: %+v", tbl.Records)
	}
}

func TestMeltSeriesFilterWithoutSeriesColumn(t *testing.T) {
	opt := giniOpts(KeepMissing)
	opt.SeriesFilter = []string{"x"}
	if _, _, err := Melt(giniWide(), opt); err == nil {
		t.Fatalf("expected error for series filter on single-metric table")
	}
}

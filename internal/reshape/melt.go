// Package reshape turns wide, year-per-column exports into long-form tables.
package reshape

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/samber/lo"
)

// YearRule says how a year is read from a column name.
type YearRule string

const (
	// YearExact requires the column name to be exactly four digits ("1998").
	YearExact YearRule = "exact"
	// YearExtract takes the first run of four digits ("1998 [YR1998]").
	YearExtract YearRule = "extract"
)

// MissingMode decides what happens to cells without a value.
type MissingMode string

const (
	// KeepMissing emits absent records so completeness audits can see gaps.
	KeepMissing MissingMode = "keep"
	// DropMissing emits only present observations.
	DropMissing MissingMode = "drop"
)

// Options declares a wide table's layout.
type Options struct {
	Dataset          string
	EntityColumn     string
	CodeColumn       string
	SeriesColumn     string
	SeriesCodeColumn string
	// IDColumns lists every identifier column; entity/code/series columns are
	// added automatically. All other columns, except IgnoreColumns, are years.
	IDColumns     []string
	IgnoreColumns []string
	YearRule      YearRule
	// YearMin/YearMax restrict which year columns are melted; zero means unbounded.
	YearMin   int
	YearMax   int
	Missing   MissingMode
	ValueName string
	// SeriesFilter keeps only rows whose series name or code is listed. It is
	// applied to the wide rows before melting.
	SeriesFilter []string
}

// Stats describes one reshape run.
type Stats struct {
	Rows        int `json:"rows"`
	YearColumns int `json:"year_columns"`
	Cells       int `json:"cells"`
	Missing     int `json:"missing"`
	Dropped     int `json:"dropped"`
	Invalid     int `json:"invalid"`
}

var (
	exactYear   = regexp.MustCompile(`^\d{4}$`)
	embeddedYrs = regexp.MustCompile(`\d{4}`)
)

// ParseYear reads a year from a column name under rule.
func ParseYear(name string, rule YearRule) (int, bool) {
	s := strings.TrimSpace(name)
	var tok string
	switch rule {
	case YearExtract:
		tok = embeddedYrs.FindString(s)
	default:
		if exactYear.MatchString(s) {
			tok = s
		}
	}
	if tok == "" {
		return 0, false
	}
	y, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return y, true
}

type yearCol struct {
	idx  int
	year int
}

// Melt converts w into one record per (row, year column). With KeepMissing the
// result has exactly rows×yearColumns records; with DropMissing absent cells are
// skipped and counted in Stats.Dropped.
func Melt(w *dataset.WideTable, opt Options) (*dataset.Table, Stats, error) {
	var st Stats
	if opt.EntityColumn == "" {
		return nil, st, &dataset.ConfigError{Dataset: opt.Dataset, Reason: "entity column not declared"}
	}
	ids := lo.Uniq(append([]string{opt.EntityColumn, opt.CodeColumn, opt.SeriesColumn, opt.SeriesCodeColumn}, opt.IDColumns...))
	ids = lo.Compact(ids)
	for _, c := range ids {
		if w.Index(c) < 0 {
			return nil, st, &dataset.ConfigError{Dataset: opt.Dataset, Column: c, Reason: "identifier column not found"}
		}
	}
	years, err := yearColumns(w, opt, ids)
	if err != nil {
		return nil, st, err
	}
	rows, err := preFilter(w, opt)
	if err != nil {
		return nil, st, err
	}

	entityIdx := w.Index(opt.EntityColumn)
	codeIdx := w.Index(opt.CodeColumn)
	seriesIdx := w.Index(opt.SeriesColumn)
	seriesCodeIdx := w.Index(opt.SeriesCodeColumn)

	out := dataset.NewTable(opt.Dataset, opt.EntityColumn, opt.CodeColumn, opt.SeriesColumn, opt.SeriesCodeColumn, opt.ValueName)
	out.Records = make([]dataset.Record, 0, len(rows)*len(years))
	st.Rows = len(rows)
	st.YearColumns = len(years)
	for _, ri := range rows {
		base := dataset.Record{
			Entity:     strings.TrimSpace(w.Cell(ri, entityIdx)),
			Code:       cellAt(w, ri, codeIdx),
			Series:     cellAt(w, ri, seriesIdx),
			SeriesCode: cellAt(w, ri, seriesCodeIdx),
		}
		for _, yc := range years {
			st.Cells++
			v, ok := dataset.ParseValue(w.Cell(ri, yc.idx))
			if !ok {
				st.Invalid++
			}
			if !v.Valid {
				st.Missing++
				if opt.Missing == DropMissing {
					st.Dropped++
					continue
				}
			}
			rec := base
			rec.Year = yc.year
			rec.Value = v
			out.Records = append(out.Records, rec)
		}
	}
	return out, st, nil
}

func cellAt(w *dataset.WideTable, row, idx int) string {
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(w.Cell(row, idx))
}

func yearColumns(w *dataset.WideTable, opt Options, ids []string) ([]yearCol, error) {
	skip := lo.SliceToMap(append(ids, opt.IgnoreColumns...), func(c string) (string, struct{}) { return c, struct{}{} })
	var out []yearCol
	for i, name := range w.Header {
		if _, ok := skip[name]; ok || name == "" {
			continue
		}
		y, ok := ParseYear(name, opt.YearRule)
		if !ok {
			return nil, &dataset.ConfigError{Dataset: opt.Dataset, Column: name, Reason: "expected a 4-digit year under rule " + string(ruleOrDefault(opt.YearRule))}
		}
		if (opt.YearMin > 0 && y < opt.YearMin) || (opt.YearMax > 0 && y > opt.YearMax) {
			continue
		}
		out = append(out, yearCol{idx: i, year: y})
	}
	return out, nil
}

func ruleOrDefault(r YearRule) YearRule {
	if r == "" {
		return YearExact
	}
	return r
}

// preFilter returns the indexes of wide rows that survive SeriesFilter.
func preFilter(w *dataset.WideTable, opt Options) ([]int, error) {
	all := lo.Range(w.Len())
	if len(opt.SeriesFilter) == 0 {
		return all, nil
	}
	nameIdx := w.Index(opt.SeriesColumn)
	codeIdx := w.Index(opt.SeriesCodeColumn)
	if nameIdx < 0 && codeIdx < 0 {
		return nil, &dataset.ConfigError{Dataset: opt.Dataset, Reason: "series filter declared without a series column"}
	}
	want := lo.SliceToMap(opt.SeriesFilter, func(s string) (string, struct{}) { return s, struct{}{} })
	return lo.Filter(all, func(ri int, _ int) bool {
		if _, ok := want[cellAt(w, ri, nameIdx)]; ok && nameIdx >= 0 {
			return true
		}
		_, ok := want[cellAt(w, ri, codeIdx)]
		return ok && codeIdx >= 0
	}), nil
}

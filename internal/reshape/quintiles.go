package reshape

import (
	"strconv"
	"strings"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
)

// QuintileOptions declares the explicit columns of a quintile-share panel.
type QuintileOptions struct {
	Dataset      string
	EntityColumn string
	CodeColumn   string
	YearColumn   string
	// ShareColumns names the bottom-to-top quintile share columns; exactly five.
	ShareColumns []string
	PalmaColumn  string
	RatioColumn  string
}

// Quintiles extracts quintile rows from an entity/year/share table. Rows whose
// year cell is not an integer are skipped and counted in Stats.Invalid.
func Quintiles(w *dataset.WideTable, opt QuintileOptions) ([]dataset.QuintileRow, Stats, error) {
	var st Stats
	if len(opt.ShareColumns) != 5 {
		return nil, st, &dataset.ConfigError{Dataset: opt.Dataset, Reason: "quintile panels need exactly five share columns"}
	}
	required := append([]string{opt.EntityColumn, opt.YearColumn}, opt.ShareColumns...)
	if opt.CodeColumn != "" {
		required = append(required, opt.CodeColumn)
	}
	for _, c := range required {
		if c == "" {
			return nil, st, &dataset.ConfigError{Dataset: opt.Dataset, Reason: "entity and year columns must be declared"}
		}
		if w.Index(c) < 0 {
			return nil, st, &dataset.ConfigError{Dataset: opt.Dataset, Column: c, Reason: "column not found"}
		}
	}
	entityIdx := w.Index(opt.EntityColumn)
	codeIdx := w.Index(opt.CodeColumn)
	yearIdx := w.Index(opt.YearColumn)
	palmaIdx := w.Index(opt.PalmaColumn)
	ratioIdx := w.Index(opt.RatioColumn)
	var shareIdx [5]int
	for i, c := range opt.ShareColumns {
		shareIdx[i] = w.Index(c)
	}

	out := make([]dataset.QuintileRow, 0, w.Len())
	st.Rows = w.Len()
	for ri := 0; ri < w.Len(); ri++ {
		year, ok := parseYearCell(w.Cell(ri, yearIdx))
		if !ok {
			st.Invalid++
			continue
		}
		q := dataset.QuintileRow{
			Entity: strings.TrimSpace(w.Cell(ri, entityIdx)),
			Code:   cellAt(w, ri, codeIdx),
			Year:   year,
		}
		for i, idx := range shareIdx {
			st.Cells++
			v, ok := dataset.ParseValue(w.Cell(ri, idx))
			if !ok {
				st.Invalid++
			}
			if !v.Valid {
				st.Missing++
			}
			q.Shares[i] = v
		}
		if palmaIdx >= 0 {
			q.Palma, _ = dataset.ParseValue(w.Cell(ri, palmaIdx))
		}
		if ratioIdx >= 0 {
			q.RatioTopBottom, _ = dataset.ParseValue(w.Cell(ri, ratioIdx))
		}
		out = append(out, q)
	}
	return out, st, nil
}

// parseYearCell accepts "2015" and spreadsheet renderings such as "2015.0".
func parseYearCell(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if y, err := strconv.Atoi(s); err == nil {
		return y, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

package analysis

import "sort"

// Frame is any table the auditor can inspect: named columns and a per-cell
// missing test.
type Frame interface {
	Columns() []string
	Len() int
	Missing(row, col int) bool
}

// ColumnCompleteness is one column's share of missing cells.
type ColumnCompleteness struct {
	Name    string  `json:"name"`
	Missing int     `json:"missing"`
	NonNull int     `json:"non_null"`
	Percent float64 `json:"missing_percent"`
}

// Completeness lists columns by descending missing percentage. NoData marks a
// table without rows; every column then reports 0%.
type Completeness struct {
	Rows    int                  `json:"rows"`
	NoData  bool                 `json:"no_data"`
	Columns []ColumnCompleteness `json:"columns"`
}

// NullAudit counts missing cells per column. Ties keep column order.
func NullAudit(f Frame) Completeness {
	cols := f.Columns()
	n := f.Len()
	out := Completeness{Rows: n, NoData: n == 0, Columns: make([]ColumnCompleteness, len(cols))}
	for j, name := range cols {
		c := ColumnCompleteness{Name: name}
		for i := 0; i < n; i++ {
			if f.Missing(i, j) {
				c.Missing++
			}
		}
		c.NonNull = n - c.Missing
		if n > 0 {
			c.Percent = float64(c.Missing) * 100.0 / float64(n)
		}
		out.Columns[j] = c
	}
	sort.SliceStable(out.Columns, func(a, b int) bool { return out.Columns[a].Percent > out.Columns[b].Percent })
	return out
}

// Package analysis audits completeness and summarises long-form tables.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/KaramelBytes/ineqdash/internal/query"
)

// Options controls the dataset report.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// MaxEntities caps the per-entity section; 0 means 20.
	MaxEntities int
	// Outliers flags values with robust |z| (MAD) above OutlierThreshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset reports.
func DefaultOptions() Options {
	return Options{SampleRows: 5, MaxEntities: 20, Outliers: true, OutlierThreshold: 3.5}
}

// Report is a markdown-friendly summary of a long-form table.
type Report struct {
	Name         string
	ValueName    string
	Completeness Completeness
	FirstYear    int
	LastYear     int
	Entities     int
	Series       []string
	Value        NumSummary
	PerEntity    []EntitySummary
	Samples      [][]string
	Columns      []string
	Warnings     []string
}

// NumSummary holds streaming statistics of present values.
type NumSummary struct {
	Count            int
	Min, Max         float64
	Mean, Std        float64
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
}

// EntitySummary is NumSummary for one entity plus its year coverage.
type EntitySummary struct {
	Entity    string
	FirstYear int
	LastYear  int
	NumSummary
}

type welford struct {
	n        int
	mean, m2 float64
	min, max float64
}

func newWelford() *welford { return &welford{min: math.Inf(1), max: math.Inf(-1)} }

func (w *welford) add(x float64) {
	w.n++
	if x < w.min {
		w.min = x
	}
	if x > w.max {
		w.max = x
	}
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

func (w *welford) summary() NumSummary {
	s := NumSummary{Count: w.n}
	if w.n == 0 {
		return s
	}
	s.Min, s.Max, s.Mean = w.min, w.max, w.mean
	if w.n > 1 {
		s.Std = math.Sqrt(w.m2 / float64(w.n-1))
	}
	return s
}

// Analyze builds a Report over t.
func Analyze(t *dataset.Table, opt Options) *Report {
	rep := &Report{Name: t.Name, ValueName: t.ValueName, Columns: t.Columns()}
	rep.Completeness = NullAudit(t)
	rep.FirstYear, rep.LastYear, _ = query.YearBounds(t.Records)
	rep.Series = query.SeriesNames(t.Records)

	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	maxEnt := opt.MaxEntities
	if maxEnt <= 0 {
		maxEnt = 20
	}

	all := newWelford()
	var vals []float64
	type entAcc struct {
		w           *welford
		first, last int
	}
	ents := map[string]*entAcc{}
	var order []string
	for _, r := range t.Records {
		if len(rep.Samples) < sampleRows && r.Value.Valid {
			rep.Samples = append(rep.Samples, t.Row(r))
		}
		ea := ents[r.Entity]
		if ea == nil {
			ea = &entAcc{w: newWelford(), first: math.MaxInt}
			ents[r.Entity] = ea
			order = append(order, r.Entity)
		}
		if !r.Value.Valid {
			continue
		}
		if r.Year < ea.first {
			ea.first = r.Year
		}
		if r.Year > ea.last {
			ea.last = r.Year
		}
		all.add(r.Value.Float)
		ea.w.add(r.Value.Float)
		vals = append(vals, r.Value.Float)
	}
	rep.Entities = len(order)
	rep.Value = all.summary()
	if opt.Outliers && len(vals) >= 8 {
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		rep.Value.OutlierThreshold = thr
		median, mad := medianMAD(vals)
		if mad > 0 {
			for _, v := range vals {
				az := math.Abs(0.6745 * (v - median) / mad)
				if az > thr {
					rep.Value.OutliersCount++
				}
				if az > rep.Value.OutliersMaxAbsZ {
					rep.Value.OutliersMaxAbsZ = az
				}
			}
		}
	}
	if len(rep.Series) > 1 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d series share one value column; statistics mix units", len(rep.Series)))
	}

	for _, e := range order {
		ea := ents[e]
		if ea.w.n == 0 {
			continue
		}
		rep.PerEntity = append(rep.PerEntity, EntitySummary{Entity: e, FirstYear: ea.first, LastYear: ea.last, NumSummary: ea.w.summary()})
	}
	sort.SliceStable(rep.PerEntity, func(i, j int) bool { return rep.PerEntity[i].Count > rep.PerEntity[j].Count })
	if len(rep.PerEntity) > maxEnt {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("showing %d/%d entities with data", maxEnt, len(rep.PerEntity)))
		rep.PerEntity = rep.PerEntity[:maxEnt]
	}
	if rep.Completeness.NoData {
		rep.Warnings = append(rep.Warnings, "table has no rows")
	}
	return rep
}

// Markdown renders a compact report suitable for prompts or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Dataset: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Completeness.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(r.Columns)))
	if r.Entities > 0 {
		b.WriteString(fmt.Sprintf("Entities: %d\n", r.Entities))
	}
	if r.FirstYear > 0 {
		b.WriteString(fmt.Sprintf("Years: %d-%d\n", r.FirstYear, r.LastYear))
	}
	if len(r.Series) > 0 {
		b.WriteString(fmt.Sprintf("Series: %d\n", len(r.Series)))
	}
	b.WriteString("\n[SCHEMA]\n")
	for _, c := range r.Completeness.Columns {
		b.WriteString(fmt.Sprintf("- %s (non-null %d, missing %.1f%%)\n", safeName(c.Name), c.NonNull, c.Percent))
	}
	if r.Value.Count > 0 {
		name := r.ValueName
		if name == "" {
			name = "value"
		}
		b.WriteString(fmt.Sprintf("\n[VALUES]\n- %s: n=%d, min %.4g, max %.4g, mean %.4g, std %.4g", safeName(name), r.Value.Count, r.Value.Min, r.Value.Max, r.Value.Mean, r.Value.Std))
		if r.Value.OutlierThreshold > 0 {
			b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", r.Value.OutliersCount, r.Value.OutlierThreshold))
			if r.Value.OutliersMaxAbsZ > 0 {
				b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", r.Value.OutliersMaxAbsZ))
			}
		}
		b.WriteString("\n")
	}
	if len(r.PerEntity) > 0 {
		b.WriteString("\n[PER-ENTITY SUMMARY]\n")
		for _, e := range r.PerEntity {
			b.WriteString(fmt.Sprintf("- %s (n=%d, %d-%d): mean %.4g (min %.4g, max %.4g, std %.4g)\n",
				safeVal(e.Entity), e.Count, e.FirstYear, e.LastYear, e.Mean, e.Min, e.Max, e.Std))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c))
		}
		b.WriteString(" |\n| ")
		for i := range r.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Columns {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Package chart renders long-form tables as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when nothing in the input can be drawn.
var ErrNoData = errors.New("no data to chart")

// Options sizes and labels a chart.
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 10 * vg.Inch
	}
	if h <= 0 {
		h = 6 * vg.Inch
	}
	return w, h
}

func newPlot(opt Options) *plot.Plot {
	p := plot.New()
	p.Title.Text = opt.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = opt.XLabel
	p.Y.Label.Text = opt.YLabel
	p.Add(plotter.NewGrid())
	return p
}

func render(p *plot.Plot, w io.Writer, opt Options) error {
	width, height := opt.size()
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

// lineKey names a line: the entity, plus the series when there are several.
func lineKey(r dataset.Record, multiSeries bool) string {
	if multiSeries && r.Series != "" {
		return r.Entity + " / " + r.Series
	}
	return r.Entity
}

// Line draws one line per entity (per entity and series when several series
// are present), year on X. Absent values are skipped.
func Line(w io.Writer, records []dataset.Record, opt Options) error {
	present := lo.Filter(records, func(r dataset.Record, _ int) bool { return r.Value.Valid })
	if len(present) == 0 {
		return ErrNoData
	}
	multi := len(lo.Uniq(lo.Map(present, func(r dataset.Record, _ int) string { return r.Series }))) > 1
	groups := lo.GroupBy(present, func(r dataset.Record) string { return lineKey(r, multi) })
	names := lo.Keys(groups)
	sort.Strings(names)

	if opt.XLabel == "" {
		opt.XLabel = "Year"
	}
	p := newPlot(opt)
	for i, name := range names {
		recs := groups[name]
		sort.SliceStable(recs, func(a, b int) bool { return recs[a].Year < recs[b].Year })
		pts := make(plotter.XYs, len(recs))
		for j, r := range recs {
			pts[j].X = float64(r.Year)
			pts[j].Y = r.Value.Float
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("line %s: %w", name, err)
		}
		l.Color = plotutil.Color(i)
		l.Width = vg.Points(2)
		p.Add(l)
		p.Legend.Add(name, l)
	}
	p.Legend.Top = true
	return render(p, w, opt)
}

// StackedBars draws one bar per entity, stacking series in the given order
// (for quintile shares: q1 at the bottom). Each entity uses its latest year
// with data for every stacked series.
func StackedBars(w io.Writer, records []dataset.Record, stack []string, opt Options) error {
	if len(stack) == 0 {
		return ErrNoData
	}
	type cell struct {
		entity string
		series string
	}
	latest := map[string]int{}
	vals := map[cell]map[int]float64{}
	for _, r := range records {
		if !r.Value.Valid || !lo.Contains(stack, r.Series) {
			continue
		}
		k := cell{r.Entity, r.Series}
		if vals[k] == nil {
			vals[k] = map[int]float64{}
		}
		if _, dup := vals[k][r.Year]; !dup {
			vals[k][r.Year] = r.Value.Float
		}
	}
	entities := lo.Uniq(lo.Map(records, func(r dataset.Record, _ int) string { return r.Entity }))
	sort.Strings(entities)
	for _, e := range entities {
		best := 0
		for y := range vals[cell{e, stack[0]}] {
			full := lo.EveryBy(stack, func(s string) bool { _, ok := vals[cell{e, s}][y]; return ok })
			if full && y > best {
				best = y
			}
		}
		if best > 0 {
			latest[e] = best
		}
	}
	entities = lo.Filter(entities, func(e string, _ int) bool { _, ok := latest[e]; return ok })
	if len(entities) == 0 {
		return ErrNoData
	}

	p := newPlot(opt)
	var below *plotter.BarChart
	for i, s := range stack {
		v := make(plotter.Values, len(entities))
		for j, e := range entities {
			v[j] = vals[cell{e, s}][latest[e]]
		}
		bars, err := plotter.NewBarChart(v, vg.Points(24))
		if err != nil {
			return fmt.Errorf("bars %s: %w", s, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		p.Legend.Add(s, bars)
		below = bars
	}
	labels := lo.Map(entities, func(e string, _ int) string { return fmt.Sprintf("%s (%d)", e, latest[e]) })
	p.NominalX(labels...)
	p.Legend.Top = true
	return render(p, w, opt)
}

// SaveFile renders with draw into a file at path.
func SaveFile(path string, draw func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := draw(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

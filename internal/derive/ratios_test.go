package derive

import (
	"math"
	"testing"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
)

func quintile(entity string, year int, shares ...float64) dataset.QuintileRow {
	q := dataset.QuintileRow{Entity: entity, Code: entity[:3], Year: year}
	for i, s := range shares {
		q.Shares[i] = dataset.Num(s)
	}
	return q
}

func byName(recs []dataset.Record) map[string]float64 {
	out := map[string]float64{}
	for _, r := range recs {
		out[r.Series] = r.Value.Float
	}
	return out
}

func TestDeriveRatios(t *testing.T) {
	recs := DeriveRatios([]dataset.QuintileRow{quintile("Norway", 2015, 10, 15, 20, 25, 30)})
	if len(recs) != 3 {
		t.Fatalf("expected 3 ratios, got %d", len(recs))
	}
	got := byName(recs)
	if got[Palma] != 30.0/25.0 || got[TopBottomRatio] != 3 || math.Abs(got[MidRatio]-25.0/15.0) > 1e-12 {
		t.Fatalf("unexpected ratios: %v", got)
	}
	if recs[0].Series != Palma || recs[0].Year != 2015 {
		t.Fatalf("unexpected first record %+v", recs[0])
	}
}

func TestDeriveRatiosZeroBottomQuintile(t *testing.T) {
	recs := DeriveRatios([]dataset.QuintileRow{quintile("Nowhere", 2000, 0, 10, 20, 30, 40)})
	got := byName(recs)
	if _, ok := got[TopBottomRatio]; ok {
		t.Fatalf("top_bottom_ratio must be omitted when q1 = 0: %v", got)
	}
	if len(recs) != 2 || got[Palma] != 4 {
		t.Fatalf("other ratios should survive: %v", got)
	}
	for _, r := range recs {
		if math.IsInf(r.Value.Float, 0) || math.IsNaN(r.Value.Float) {
			t.Fatalf("non-finite ratio %+v", r)
		}
	}
}

func TestDeriveRatiosIncompleteGroup(t *testing.T) {
	q := quintile("Chile", 2003, 5, 9, 13, 20, 53)
	q.Shares[2] = dataset.Missing
	if recs := DeriveRatios([]dataset.QuintileRow{q}); len(recs) != 0 {
		t.Fatalf("incomplete group should emit nothing, got %+v", recs)
	}
}

func TestDeriveRatiosDuplicateGroup(t *testing.T) {
	incomplete := quintile("Chile", 2003, 5, 9, 13, 20, 53)
	incomplete.Shares[0] = dataset.Missing
	rows := []dataset.QuintileRow{
		incomplete,
		quintile("Chile", 2003, 5, 10, 15, 20, 50),
		quintile("Chile", 2003, 1, 1, 1, 1, 96),
	}
	got := byName(DeriveRatios(rows))
	if got[TopBottomRatio] != 10 {
		t.Fatalf("first complete row should win, got %v", got)
	}
}

func TestReconcile(t *testing.T) {
	a := quintile("Norway", 2015, 10, 15, 20, 25, 30)
	a.Palma = dataset.Num(1.2)
	b := quintile("Brazil", 2015, 3, 7, 12, 19, 59)
	b.Palma = dataset.Num(3.5)
	c := quintile("Chile", 2015, 5, 10, 15, 20, 50)
	out := Reconcile([]dataset.QuintileRow{a, b, c}, Palma, 0.01)
	if len(out) != 1 || out[0].Entity != "Brazil" {
		t.Fatalf("expected only Brazil to disagree, got %+v", out)
	}
	if math.Abs(out[0].Difference-(5.9-3.5)) > 1e-9 {
		t.Fatalf("difference: %v", out[0].Difference)
	}
	if got := Reconcile([]dataset.QuintileRow{a}, "gini", 0); len(got) != 0 {
		t.Fatalf("unknown metric should yield nothing")
	}
}

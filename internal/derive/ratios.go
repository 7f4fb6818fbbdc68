package derive

import (
	"math"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/samber/lo"
)

// Ratio names of the derived series.
const (
	Palma          = "palma"
	TopBottomRatio = "top_bottom_ratio"
	MidRatio       = "mid_ratio"
)

// RatioNames lists derived ratios in emission order.
var RatioNames = []string{Palma, TopBottomRatio, MidRatio}

type groupKey struct {
	entity string
	year   int
}

// canonical keeps the first complete row per (entity, year), in input order.
func canonical(rows []dataset.QuintileRow) []dataset.QuintileRow {
	seen := make(map[groupKey]bool)
	return lo.Filter(rows, func(q dataset.QuintileRow, _ int) bool {
		if !q.Complete() {
			return false
		}
		k := groupKey{q.Entity, q.Year}
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
}

// ratio divides, reporting absent for a zero denominator or non-finite result.
func ratio(num, den float64) dataset.Value {
	if den == 0 {
		return dataset.Missing
	}
	return dataset.Num(num / den)
}

// Ratios computes the three derived ratios of a complete row, keyed by name.
// Palma is q5/(q1+q2): the top quintile over the bottom 40%.
func Ratios(q dataset.QuintileRow) map[string]dataset.Value {
	s := func(i int) float64 { return q.Shares[i].Float }
	return map[string]dataset.Value{
		Palma:          ratio(s(4), s(0)+s(1)),
		TopBottomRatio: ratio(s(4), s(0)),
		MidRatio:       ratio(s(3), s(1)),
	}
}

// DeriveRatios emits one record per present ratio of every complete (entity,
// year) group; the ratio name is carried in Series. Groups with a missing
// share emit nothing and undefined ratios are omitted.
func DeriveRatios(rows []dataset.QuintileRow) []dataset.Record {
	out := make([]dataset.Record, 0, len(rows)*len(RatioNames))
	for _, q := range canonical(rows) {
		rs := Ratios(q)
		for _, name := range RatioNames {
			v := rs[name]
			if !v.Valid {
				continue
			}
			out = append(out, dataset.Record{
				Entity: q.Entity,
				Code:   q.Code,
				Series: name,
				Year:   q.Year,
				Value:  v,
			})
		}
	}
	return out
}

// RatioTable wraps derived ratios in a long-form table.
func RatioTable(name string, rows []dataset.QuintileRow) *dataset.Table {
	t := dataset.NewTable(name+"_ratios", "Entity", "Code", "Ratio", "", "Value")
	t.Records = DeriveRatios(rows)
	return t
}

// Discrepancy is a quintile row whose sourced ratio disagrees with the one
// derived from its shares.
type Discrepancy struct {
	Entity     string  `json:"entity"`
	Code       string  `json:"code"`
	Year       int     `json:"year"`
	Metric     string  `json:"metric"`
	Sourced    float64 `json:"sourced"`
	Derived    float64 `json:"derived"`
	Difference float64 `json:"difference"`
}

// Reconcile compares a sourced column (Palma or TopBottomRatio) against the
// derived value. Rows lacking either side are skipped.
func Reconcile(rows []dataset.QuintileRow, metric string, tolerance float64) []Discrepancy {
	out := []Discrepancy{}
	for _, q := range canonical(rows) {
		var sourced dataset.Value
		switch metric {
		case Palma:
			sourced = q.Palma
		case TopBottomRatio:
			sourced = q.RatioTopBottom
		default:
			return out
		}
		derived := Ratios(q)[metric]
		if !sourced.Valid || !derived.Valid {
			continue
		}
		diff := derived.Float - sourced.Float
		if math.Abs(diff) <= tolerance {
			continue
		}
		out = append(out, Discrepancy{
			Entity:     q.Entity,
			Code:       q.Code,
			Year:       q.Year,
			Metric:     metric,
			Sourced:    sourced.Float,
			Derived:    derived.Float,
			Difference: diff,
		})
	}
	return out
}

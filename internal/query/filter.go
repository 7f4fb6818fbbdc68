// Package query selects long-form records for display.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/samber/lo"
)

// ErrInvalidRange reports a year range whose lower bound exceeds its upper bound.
var ErrInvalidRange = errors.New("year_min is after year_max")

// Matcher decides when two entity names denote the same entity by mapping
// each name to a comparison key.
type Matcher interface {
	Key(name string) string
}

// ExactMatcher compares names byte for byte: no trimming or case folding.
type ExactMatcher struct{}

func (ExactMatcher) Key(name string) string { return name }

// Spec is a filter: selected entities and an inclusive year range.
type Spec struct {
	Entities []string `json:"entities"`
	YearMin  int      `json:"year_min"`
	YearMax  int      `json:"year_max"`
}

// Validate reports ErrInvalidRange when YearMin > YearMax.
func (s Spec) Validate() error {
	if s.YearMin > s.YearMax {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, s.YearMin, s.YearMax)
	}
	return nil
}

// EmptyMessage explains an empty filter result for display.
func (s Spec) EmptyMessage() string {
	if len(s.Entities) == 0 {
		return "No entities selected."
	}
	return fmt.Sprintf("No data for the selected entities between %d and %d.", s.YearMin, s.YearMax)
}

// Apply filters records with exact entity matching.
func Apply(records []dataset.Record, s Spec) []dataset.Record {
	return ApplyWith(records, s, ExactMatcher{})
}

// ApplyWith keeps records whose entity is selected under m and whose year lies
// in [YearMin, YearMax]. No entities selected means nothing matches. The input
// is never modified and the result is never nil.
func ApplyWith(records []dataset.Record, s Spec, m Matcher) []dataset.Record {
	if len(s.Entities) == 0 {
		return []dataset.Record{}
	}
	want := lo.SliceToMap(s.Entities, func(e string) (string, struct{}) { return m.Key(e), struct{}{} })
	out := lo.Filter(records, func(r dataset.Record, _ int) bool {
		if r.Year < s.YearMin || r.Year > s.YearMax {
			return false
		}
		_, ok := want[m.Key(r.Entity)]
		return ok
	})
	if out == nil {
		return []dataset.Record{}
	}
	return out
}

// Series keeps records of one series, matched by name or code.
func Series(records []dataset.Record, series string) []dataset.Record {
	return lo.Filter(records, func(r dataset.Record, _ int) bool {
		return r.Series == series || r.SeriesCode == series
	})
}

// SeriesNames lists distinct series names in first-seen order.
func SeriesNames(records []dataset.Record) []string {
	names := lo.FilterMap(records, func(r dataset.Record, _ int) (string, bool) {
		return r.Series, r.Series != ""
	})
	return lo.Uniq(names)
}

// Entities lists distinct entity names, sorted.
func Entities(records []dataset.Record) []string {
	out := lo.Uniq(lo.Map(records, func(r dataset.Record, _ int) string { return r.Entity }))
	sort.Strings(out)
	return out
}

// YearBounds returns the smallest and largest year present; ok is false for
// an empty collection.
func YearBounds(records []dataset.Record) (min, max int, ok bool) {
	if len(records) == 0 {
		return 0, 0, false
	}
	min, max = records[0].Year, records[0].Year
	for _, r := range records[1:] {
		if r.Year < min {
			min = r.Year
		}
		if r.Year > max {
			max = r.Year
		}
	}
	return min, max, true
}

// Present drops records without a value.
func Present(records []dataset.Record) []dataset.Record {
	return lo.Filter(records, func(r dataset.Record, _ int) bool { return r.Value.Valid })
}

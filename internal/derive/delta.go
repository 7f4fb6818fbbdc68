// Package derive computes period-over-period deltas, quintile ratios and map
// joins from long-form tables.
package derive

import (
	"fmt"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/KaramelBytes/ineqdash/internal/query"
)

// Polarity says which direction of change is an improvement.
type Polarity string

const (
	LowerIsBetter  Polarity = "lower_is_better"
	HigherIsBetter Polarity = "higher_is_better"
)

// ParsePolarity accepts the catalogue spellings; empty means LowerIsBetter.
func ParsePolarity(s string) (Polarity, error) {
	switch Polarity(s) {
	case "", LowerIsBetter:
		return LowerIsBetter, nil
	case HigherIsBetter:
		return HigherIsBetter, nil
	}
	return "", fmt.Errorf("unknown polarity %q", s)
}

// Direction classifies a change between two boundary years. A change that
// does not move the metric the bad way, including no change, is Improved.
type Direction string

const (
	Improved    Direction = "improved"
	Worsened    Direction = "worsened"
	Unavailable Direction = "unavailable"
)

// MetricDelta is an entity's metric at two boundary years. Delta is Last-First
// at full precision; rounding belongs to display.
type MetricDelta struct {
	Entity    string        `json:"entity"`
	FirstYear int           `json:"first_year"`
	LastYear  int           `json:"last_year"`
	First     dataset.Value `json:"first"`
	Last      dataset.Value `json:"last"`
	Delta     dataset.Value `json:"delta"`
	Direction Direction     `json:"direction"`
}

// DeltaCalculator computes MetricDeltas under a polarity. A nil Matcher means
// exact name matching.
type DeltaCalculator struct {
	Polarity Polarity
	Matcher  query.Matcher
}

func (c DeltaCalculator) matcher() query.Matcher {
	if c.Matcher == nil {
		return query.ExactMatcher{}
	}
	return c.Matcher
}

// Lookup returns the value of the first record matching (entity, year). Later
// duplicates are ignored.
func (c DeltaCalculator) Lookup(records []dataset.Record, entity string, year int) dataset.Value {
	m := c.matcher()
	key := m.Key(entity)
	for _, r := range records {
		if r.Year == year && m.Key(r.Entity) == key {
			return r.Value
		}
	}
	return dataset.Missing
}

// Delta compares entity's values at firstYear and lastYear. Either endpoint
// absent makes the delta absent and the direction Unavailable.
func (c DeltaCalculator) Delta(records []dataset.Record, entity string, firstYear, lastYear int) MetricDelta {
	d := MetricDelta{
		Entity:    entity,
		FirstYear: firstYear,
		LastYear:  lastYear,
		First:     c.Lookup(records, entity, firstYear),
		Last:      c.Lookup(records, entity, lastYear),
		Direction: Unavailable,
	}
	if !d.First.Valid || !d.Last.Valid {
		return d
	}
	d.Delta = dataset.Num(d.Last.Float - d.First.Float)
	if !d.Delta.Valid {
		return d
	}
	worse := d.Delta.Float > 0
	if c.Polarity == HigherIsBetter {
		worse = d.Delta.Float < 0
	}
	d.Direction = Improved
	if worse {
		d.Direction = Worsened
	}
	return d
}

// Deltas computes a delta per entity, in selection order.
func (c DeltaCalculator) Deltas(records []dataset.Record, entities []string, firstYear, lastYear int) []MetricDelta {
	out := make([]MetricDelta, 0, len(entities))
	for _, e := range entities {
		out = append(out, c.Delta(records, e, firstYear, lastYear))
	}
	return out
}

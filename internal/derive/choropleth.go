package derive

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/samber/lo"
)

// Region is one (code, entity) pair of a dataset's universe. Code is empty
// for datasets without a code column.
type Region struct {
	Code   string `json:"code"`
	Entity string `json:"entity"`
}

// key identifies a region by code, or by entity name when there is no code.
func (r Region) key() string {
	if r.Code != "" {
		return r.Code
	}
	return r.Entity
}

// UniverseOf collects every distinct region observed in records, whether or
// not it carries a value.
func UniverseOf(records []dataset.Record) []Region {
	return universe(lo.Map(records, func(r dataset.Record, _ int) Region {
		return Region{Code: r.Code, Entity: r.Entity}
	}))
}

// UniverseOfWide collects the regions of every row of a raw table, so
// entities that never carry a value still appear. codeCol may be empty.
func UniverseOfWide(w *dataset.WideTable, entityCol, codeCol string) []Region {
	ei, ci := w.Index(entityCol), w.Index(codeCol)
	pairs := make([]Region, 0, w.Len())
	for row := 0; row < w.Len(); row++ {
		r := Region{Entity: strings.TrimSpace(w.Cell(row, ei))}
		if ci >= 0 {
			r.Code = strings.TrimSpace(w.Cell(row, ci))
		}
		pairs = append(pairs, r)
	}
	return universe(pairs)
}

// universe dedupes regions by key, keeping the first name seen for a code,
// and sorts them by key.
func universe(pairs []Region) []Region {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]Region, 0, len(pairs))
	for _, r := range pairs {
		k := r.key()
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// YearSlice keeps present values of the given year.
func YearSlice(records []dataset.Record, year int) []dataset.Record {
	return lo.Filter(records, func(r dataset.Record, _ int) bool { return r.Year == year && r.Value.Valid })
}

// MapCell is one region of map output. Value is 0 when the region has no data
// in the slice; HasData tells the two apart.
type MapCell struct {
	Code    string  `json:"code"`
	Entity  string  `json:"entity"`
	Value   float64 `json:"value"`
	HasData bool    `json:"has_data"`
}

// JoinForMap left-joins the universe against slice by code (entity name when
// there is no code). The result always has exactly len(regions) cells, in
// universe order; the first slice value per region wins.
func JoinForMap(regions []Region, slice []dataset.Record) []MapCell {
	vals := make(map[string]float64, len(slice))
	for _, r := range slice {
		if !r.Value.Valid {
			continue
		}
		k := Region{Code: r.Code, Entity: r.Entity}.key()
		if _, dup := vals[k]; !dup {
			vals[k] = r.Value.Float
		}
	}
	out := make([]MapCell, len(regions))
	for i, u := range regions {
		v, ok := vals[u.key()]
		out[i] = MapCell{Code: u.Code, Entity: u.Entity, Value: v, HasData: ok}
	}
	return out
}

package dataset

import "strconv"

// WideTable is a raw tabular source: one header row and string cells, typically
// one row per entity with a column per year.
type WideTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Index returns the position of the named column, or -1.
func (t *WideTable) Index(col string) int {
	if col == "" {
		return -1
	}
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// Cell returns the cell at (row, col); short rows read as empty.
func (t *WideTable) Cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

func (t *WideTable) Columns() []string { return t.Header }
func (t *WideTable) Len() int          { return len(t.Rows) }

func (t *WideTable) Missing(row, col int) bool {
	return IsMissingCell(t.Cell(row, col))
}

// Record is one long-form observation: an entity's metric value in one year.
// Series fields are empty for single-metric datasets.
type Record struct {
	Entity     string `json:"entity"`
	Code       string `json:"code"`
	Series     string `json:"series,omitempty"`
	SeriesCode string `json:"series_code,omitempty"`
	Year       int    `json:"year"`
	Value      Value  `json:"value"`
}

// Field identifies a Record attribute for column-oriented access.
type Field int

const (
	FieldEntity Field = iota
	FieldCode
	FieldSeries
	FieldSeriesCode
	FieldYear
	FieldValue
)

// Column names a Record field the way the source dataset names it.
type Column struct {
	Name  string
	Field Field
}

// Table is a long-form collection. Record order carries no meaning; consumers
// group by (entity, year) rather than relying on position.
type Table struct {
	Name      string
	ValueName string
	Schema    []Column
	Records   []Record
}

// NewTable builds a table whose schema follows the given source column names.
// Empty names are omitted from the schema.
func NewTable(name, entityCol, codeCol, seriesCol, seriesCodeCol, valueName string) *Table {
	t := &Table{Name: name, ValueName: valueName}
	add := func(n string, f Field) {
		if n != "" {
			t.Schema = append(t.Schema, Column{Name: n, Field: f})
		}
	}
	add(entityCol, FieldEntity)
	add(codeCol, FieldCode)
	add(seriesCol, FieldSeries)
	add(seriesCodeCol, FieldSeriesCode)
	add("Year", FieldYear)
	add(valueName, FieldValue)
	return t
}

// WithRecords returns a shallow copy of t holding recs.
func (t *Table) WithRecords(recs []Record) *Table {
	cp := *t
	cp.Records = recs
	return &cp
}

func (t *Table) Columns() []string {
	out := make([]string, len(t.Schema))
	for i, c := range t.Schema {
		out[i] = c.Name
	}
	return out
}

func (t *Table) Len() int { return len(t.Records) }

func (t *Table) Missing(row, col int) bool {
	r := t.Records[row]
	switch t.Schema[col].Field {
	case FieldEntity:
		return r.Entity == ""
	case FieldCode:
		return r.Code == ""
	case FieldSeries:
		return r.Series == ""
	case FieldSeriesCode:
		return r.SeriesCode == ""
	case FieldYear:
		return r.Year == 0
	default:
		return !r.Value.Valid
	}
}

// Row renders a record as cells in schema order.
func (t *Table) Row(r Record) []string {
	out := make([]string, len(t.Schema))
	for i, c := range t.Schema {
		switch c.Field {
		case FieldEntity:
			out[i] = r.Entity
		case FieldCode:
			out[i] = r.Code
		case FieldSeries:
			out[i] = r.Series
		case FieldSeriesCode:
			out[i] = r.SeriesCode
		case FieldYear:
			out[i] = strconv.Itoa(r.Year)
		default:
			out[i] = r.Value.String()
		}
	}
	return out
}

// QuintileRow holds income shares by population quintile, bottom (Shares[0]) to
// top (Shares[4]), plus the ratios some sources ship precomputed.
type QuintileRow struct {
	Entity         string   `json:"entity"`
	Code           string   `json:"code"`
	Year           int      `json:"year"`
	Shares         [5]Value `json:"shares"`
	Palma          Value    `json:"palma"`
	RatioTopBottom Value    `json:"ratio_top20bottom20"`
}

// Complete reports whether all five shares are present.
func (q QuintileRow) Complete() bool {
	for _, s := range q.Shares {
		if !s.Valid {
			return false
		}
	}
	return true
}

package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a metric observation that may be absent. The zero value is absent.
type Value struct {
	Float float64
	Valid bool
}

// Missing is the absent observation.
var Missing = Value{}

// Num wraps a float. NaN and infinities are treated as absent.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}
	return Value{Float: f, Valid: true}
}

// missingMarkers are the cell spellings World Bank and WIID exports use for "no data".
var missingMarkers = map[string]struct{}{
	"":    {},
	"..":  {},
	"na":  {},
	"n/a": {},
	"nan": {},
	"-":   {},
}

// ParseValue interprets a raw cell. ok is false when the cell holds text that is
// neither a number nor a recognised missing marker; the returned Value is then absent.
func ParseValue(raw string) (v Value, ok bool) {
	s := strings.TrimSpace(raw)
	if _, isMarker := missingMarkers[strings.ToLower(s)]; isMarker {
		return Missing, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing, false
	}
	return Num(f), true
}

// IsMissingCell reports whether a raw cell is empty or a missing marker.
// Text such as an entity name is present.
func IsMissingCell(raw string) bool {
	_, ok := missingMarkers[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

// MarshalJSON renders absent values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Missing
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Num(f)
	return nil
}

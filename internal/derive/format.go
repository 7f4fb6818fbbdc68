package derive

import (
	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/shopspring/decimal"
)

// NotAvailable is the display form of an absent value.
const NotAvailable = "n/a"

// FormatValue renders v to two decimals, or "n/a".
func FormatValue(v dataset.Value) string {
	if !v.Valid {
		return NotAvailable
	}
	return decimal.NewFromFloat(v.Float).StringFixed(2)
}

// FormatDelta renders a signed delta ("+5.00", "-1.25"), or "n/a".
func FormatDelta(v dataset.Value) string {
	if !v.Valid {
		return NotAvailable
	}
	d := decimal.NewFromFloat(v.Float).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

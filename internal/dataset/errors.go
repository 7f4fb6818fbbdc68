package dataset

import "fmt"

// ConfigError reports a dataset whose declared layout does not match its source:
// a year-designated column without a 4-digit year, a missing identifier column,
// or an unknown dataset name. It aborts the affected computation.
type ConfigError struct {
	Dataset string
	Column  string
	Reason  string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Dataset != "" && e.Column != "":
		return fmt.Sprintf("dataset %q: column %q: %s", e.Dataset, e.Column, e.Reason)
	case e.Dataset != "":
		return fmt.Sprintf("dataset %q: %s", e.Dataset, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
	}
	return "dataset configuration: " + e.Reason
}

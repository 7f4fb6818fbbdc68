package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/KaramelBytes/ineqdash/internal/export"
	"github.com/KaramelBytes/ineqdash/internal/query"
	"github.com/spf13/cobra"
)

// selectionFlags are the entity/year/series widgets shared by the data commands.
type selectionFlags struct {
	entities []string
	all      bool
	from     int
	to       int
	series   string
}

func (s *selectionFlags) bind(c *cobra.Command) {
	// StringArray keeps names such as "Korea, Rep." intact.
	c.Flags().StringArrayVarP(&s.entities, "entity", "e", nil, "entity to include (repeatable; default: the dataset's default selection)")
	c.Flags().BoolVar(&s.all, "all", false, "include every entity")
	c.Flags().IntVar(&s.from, "from", 0, "first year (default: earliest in data)")
	c.Flags().IntVar(&s.to, "to", 0, "last year (default: latest in data)")
	c.Flags().StringVar(&s.series, "series", "", "series/indicator name or code")
}

// records narrows the entry to --series.
func (s *selectionFlags) records(recs []dataset.Record) []dataset.Record {
	if s.series == "" {
		return recs
	}
	return query.Series(recs, s.series)
}

// spec resolves the flags against recs: unset years default to the data's
// bounds and an unset selection to defaults.
func (s *selectionFlags) spec(c *cobra.Command, recs []dataset.Record, defaults []string) (query.Spec, error) {
	entities := defaults
	switch {
	case s.all:
		entities = query.Entities(recs)
	case c.Flags().Changed("entity"):
		entities = s.entities
	}
	first, last, _ := query.YearBounds(recs)
	if c.Flags().Changed("from") {
		first = s.from
	}
	if c.Flags().Changed("to") {
		last = s.to
	}
	spec := query.Spec{Entities: entities, YearMin: first, YearMax: last}
	return spec, spec.Validate()
}

// outputFlags route a long-form result to a file or stdout.
type outputFlags struct {
	path   string
	format string
}

func (o *outputFlags) bind(c *cobra.Command) {
	c.Flags().StringVarP(&o.path, "output", "o", "", "write results to a .csv, .json or .xlsx file")
	c.Flags().StringVar(&o.format, "format", "csv", "stdout format when --output is not set: csv|json")
}

func (o *outputFlags) write(t *dataset.Table) error {
	if o.path != "" {
		if err := export.WriteFile(o.path, t); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %d records to %s\n", len(t.Records), o.path)
		return nil
	}
	f, err := export.ParseFormat(o.format)
	if err != nil {
		return err
	}
	if f == export.XLSX {
		return fmt.Errorf("xlsx output needs --output <file>.xlsx")
	}
	return export.Write(os.Stdout, t, f)
}

// warnEmpty prints the explicit empty state for a filter with no rows.
func warnEmpty(recs []dataset.Record, spec query.Spec) {
	if len(recs) == 0 {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", spec.EmptyMessage())
	}
}

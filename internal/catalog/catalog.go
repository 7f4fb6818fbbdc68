// Package catalog declares the dashboard's data sources and loads each of them
// once per process.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/KaramelBytes/ineqdash/internal/reshape"
	"gopkg.in/yaml.v3"
)

// Kind distinguishes year-per-column sources from quintile panels.
type Kind string

const (
	KindWide     Kind = "wide"
	KindQuintile Kind = "quintile"
)

// Definition describes one source file and how to reshape it.
type Definition struct {
	Name  string `yaml:"name" json:"name"`
	Title string `yaml:"title" json:"title"`
	Path  string `yaml:"path" json:"path"`
	Sheet string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Kind  Kind   `yaml:"kind" json:"kind"`

	EntityColumn     string   `yaml:"entity_column" json:"entity_column"`
	CodeColumn       string   `yaml:"code_column" json:"code_column"`
	SeriesColumn     string   `yaml:"series_column,omitempty" json:"series_column,omitempty"`
	SeriesCodeColumn string   `yaml:"series_code_column,omitempty" json:"series_code_column,omitempty"`
	IDColumns        []string `yaml:"id_columns,omitempty" json:"id_columns,omitempty"`
	IgnoreColumns    []string `yaml:"ignore_columns,omitempty" json:"ignore_columns,omitempty"`

	YearRule     reshape.YearRule    `yaml:"year_rule,omitempty" json:"year_rule,omitempty"`
	YearMin      int                 `yaml:"year_min,omitempty" json:"year_min,omitempty"`
	YearMax      int                 `yaml:"year_max,omitempty" json:"year_max,omitempty"`
	Missing      reshape.MissingMode `yaml:"missing,omitempty" json:"missing,omitempty"`
	ValueName    string              `yaml:"value_name" json:"value_name"`
	Polarity     string              `yaml:"polarity,omitempty" json:"polarity,omitempty"`
	SeriesFilter []string            `yaml:"series_filter,omitempty" json:"series_filter,omitempty"`

	DefaultEntities []string `yaml:"default_entities,omitempty" json:"default_entities,omitempty"`

	// Quintile panels only.
	YearColumn      string   `yaml:"year_column,omitempty" json:"year_column,omitempty"`
	QuintileColumns []string `yaml:"quintile_columns,omitempty" json:"quintile_columns,omitempty"`
	PalmaColumn     string   `yaml:"palma_column,omitempty" json:"palma_column,omitempty"`
	RatioColumn     string   `yaml:"ratio_column,omitempty" json:"ratio_column,omitempty"`
}

// MeltOptions translates a wide definition into reshape options.
func (d Definition) MeltOptions() reshape.Options {
	return reshape.Options{
		Dataset:          d.Name,
		EntityColumn:     d.EntityColumn,
		CodeColumn:       d.CodeColumn,
		SeriesColumn:     d.SeriesColumn,
		SeriesCodeColumn: d.SeriesCodeColumn,
		IDColumns:        d.IDColumns,
		IgnoreColumns:    d.IgnoreColumns,
		YearRule:         d.YearRule,
		YearMin:          d.YearMin,
		YearMax:          d.YearMax,
		Missing:          d.Missing,
		ValueName:        d.ValueName,
		SeriesFilter:     d.SeriesFilter,
	}
}

// QuintileOptions translates a quintile definition into reshape options.
func (d Definition) QuintileOptions() reshape.QuintileOptions {
	return reshape.QuintileOptions{
		Dataset:      d.Name,
		EntityColumn: d.EntityColumn,
		CodeColumn:   d.CodeColumn,
		YearColumn:   d.YearColumn,
		ShareColumns: d.QuintileColumns,
		PalmaColumn:  d.PalmaColumn,
		RatioColumn:  d.RatioColumn,
	}
}

// Validate checks the declaration itself; column presence is checked at load.
func (d Definition) Validate() error {
	if d.Name == "" {
		return &dataset.ConfigError{Reason: "dataset name is required"}
	}
	if d.Path == "" {
		return &dataset.ConfigError{Dataset: d.Name, Reason: "path is required"}
	}
	if d.EntityColumn == "" {
		return &dataset.ConfigError{Dataset: d.Name, Reason: "entity_column is required"}
	}
	switch d.Kind {
	case KindWide:
		switch d.YearRule {
		case "", reshape.YearExact, reshape.YearExtract:
		default:
			return &dataset.ConfigError{Dataset: d.Name, Reason: fmt.Sprintf("unknown year_rule %q", d.YearRule)}
		}
		switch d.Missing {
		case "", reshape.KeepMissing, reshape.DropMissing:
		default:
			return &dataset.ConfigError{Dataset: d.Name, Reason: fmt.Sprintf("unknown missing mode %q", d.Missing)}
		}
		if d.YearMin > 0 && d.YearMax > 0 && d.YearMin > d.YearMax {
			return &dataset.ConfigError{Dataset: d.Name, Reason: "year_min is after year_max"}
		}
	case KindQuintile:
		if d.YearColumn == "" || len(d.QuintileColumns) != 5 {
			return &dataset.ConfigError{Dataset: d.Name, Reason: "quintile datasets need year_column and five quintile_columns"}
		}
	default:
		return &dataset.ConfigError{Dataset: d.Name, Reason: fmt.Sprintf("unknown kind %q", d.Kind)}
	}
	switch d.Polarity {
	case "", "lower_is_better", "higher_is_better":
	default:
		return &dataset.ConfigError{Dataset: d.Name, Reason: fmt.Sprintf("unknown polarity %q", d.Polarity)}
	}
	return nil
}

// Catalog is the ordered list of known datasets.
type Catalog struct {
	Datasets []Definition `yaml:"datasets" json:"datasets"`
}

var worldBankIDs = []string{"Country Name", "Country Code"}

// Default returns the built-in catalogue of the four dashboard sources.
func Default() *Catalog {
	return &Catalog{Datasets: []Definition{
		{
			Name:            "gini",
			Title:           "Gini index",
			Path:            "gini_data.csv",
			Kind:            KindWide,
			EntityColumn:    worldBankIDs[0],
			CodeColumn:      worldBankIDs[1],
			IgnoreColumns:   []string{"Indicator Name", "Indicator Code"},
			YearRule:        reshape.YearExact,
			YearMin:         1960,
			YearMax:         2023,
			Missing:         reshape.KeepMissing,
			ValueName:       "GINI",
			Polarity:        "lower_is_better",
			DefaultEntities: []string{"Germany", "Brazil", "Norway", "South Africa", "United States", "Estonia"},
		},
		{
			Name:             "poverty",
			Title:            "Poverty headcount ratio",
			Path:             "poverty_headcount_ratio_data.csv",
			Kind:             KindWide,
			EntityColumn:     worldBankIDs[0],
			CodeColumn:       worldBankIDs[1],
			SeriesColumn:     "Indicator Name",
			SeriesCodeColumn: "Indicator Code",
			YearRule:         reshape.YearExact,
			Missing:          reshape.DropMissing,
			ValueName:        "Poverty Headcount Ratio",
			Polarity:         "lower_is_better",
			DefaultEntities:  []string{"Argentina", "Chile", "Ethiopia"},
		},
		{
			Name:             "indicators",
			Title:            "World Bank popular indicators",
			Path:             "world_bank_popular_indicators.csv",
			Kind:             KindWide,
			EntityColumn:     worldBankIDs[0],
			CodeColumn:       worldBankIDs[1],
			SeriesColumn:     "Series Name",
			SeriesCodeColumn: "Series Code",
			YearRule:         reshape.YearExtract,
			Missing:          reshape.DropMissing,
			ValueName:        "Value",
			Polarity:         "higher_is_better",
			DefaultEntities:  []string{"United States", "China", "India"},
		},
		{
			Name:             "gdp_deflator",
			Title:            "Inflation, GDP deflator (annual %)",
			Path:             "world_bank_popular_indicators.csv",
			Kind:             KindWide,
			EntityColumn:     worldBankIDs[0],
			CodeColumn:       worldBankIDs[1],
			SeriesColumn:     "Series Name",
			SeriesCodeColumn: "Series Code",
			YearRule:         reshape.YearExtract,
			Missing:          reshape.DropMissing,
			ValueName:        "GDP Deflator",
			Polarity:         "lower_is_better",
			SeriesFilter:     []string{"NY.GDP.DEFL.KD.ZG"},
			DefaultEntities:  []string{"United States", "China", "India"},
		},
		{
			Name:            "quintiles",
			Title:           "WIID income shares by quintile",
			Path:            "wiid_quintiles.csv",
			Kind:            KindQuintile,
			EntityColumn:    "country",
			CodeColumn:      "c3",
			YearColumn:      "year",
			QuintileColumns: []string{"q1", "q2", "q3", "q4", "q5"},
			PalmaColumn:     "palma",
			RatioColumn:     "ratio_top20bottom20",
			ValueName:       "Share",
			Polarity:        "lower_is_better",
			DefaultEntities: []string{"Germany", "Brazil", "Norway", "South Africa", "United States", "Estonia"},
		},
	}}
}

// Load reads a YAML catalogue. An empty path or a missing file yields Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every definition and rejects duplicate names.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Datasets))
	for _, d := range c.Datasets {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.Name] {
			return &dataset.ConfigError{Dataset: d.Name, Reason: "declared twice"}
		}
		seen[d.Name] = true
	}
	return nil
}

// Lookup returns the named definition.
func (c *Catalog) Lookup(name string) (Definition, error) {
	for _, d := range c.Datasets {
		if d.Name == name {
			return d, nil
		}
	}
	return Definition{}, &UnknownDatasetError{Name: name}
}

// Names lists dataset names in catalogue order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.Datasets))
	for i, d := range c.Datasets {
		out[i] = d.Name
	}
	return out
}

// UnknownDatasetError is returned when a name is not in the catalogue.
type UnknownDatasetError struct{ Name string }

func (e *UnknownDatasetError) Error() string { return fmt.Sprintf("unknown dataset %q", e.Name) }

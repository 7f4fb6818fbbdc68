package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
)

func TestDefaultCatalogValidates(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default catalogue invalid: %v", err)
	}
	g, err := c.Lookup("gini")
	if err != nil {
		t.Fatalf("lookup gini: %v", err)
	}
	if g.Missing != "keep" || g.Polarity != "lower_is_better" || len(g.DefaultEntities) != 6 {
		t.Fatalf("unexpected gini definition: %+v", g)
	}
	d, _ := c.Lookup("gdp_deflator")
	if len(d.SeriesFilter) != 1 || d.SeriesFilter[0] != "NY.GDP.DEFL.KD.ZG" {
		t.Fatalf("deflator filter: %v", d.SeriesFilter)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Default().Lookup("nope")
	var ue *UnknownDatasetError
	if !errors.As(err, &ue) || ue.Name != "nope" {
		t.Fatalf("expected UnknownDatasetError, got %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "datasets.yaml")
	yml := `datasets:
  - name: gini
    path: gini.csv
    kind: wide
    entity_column: Country Name
    code_column: Country Code
    year_rule: exact
    missing: keep
    value_name: GINI
    polarity: lower_is_better
`
	if err := os.WriteFile(p, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Datasets) != 1 || c.Datasets[0].Path != "gini.csv" {
		t.Fatalf("unexpected catalogue: %+v", c.Datasets)
	}

	missing, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil || len(missing.Datasets) != len(Default().Datasets) {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
}

func TestLoadRejectsBadDefinition(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "datasets.yaml")
	yml := `datasets:
  - name: gini
    path: gini.csv
    kind: wide
    entity_column: Country Name
    year_rule: fuzzy
`
	if err := os.WriteFile(p, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(p)
	var ce *dataset.ConfigError
	if !errors.As(err, &ce) || ce.Dataset != "gini" {
		t.Fatalf("expected ConfigError for gini, got %v", err)
	}
}

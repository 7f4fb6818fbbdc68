package catalog

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/KaramelBytes/ineqdash/internal/derive"
	"github.com/KaramelBytes/ineqdash/internal/metrics"
	"github.com/KaramelBytes/ineqdash/internal/reshape"
)

// Entry is one loaded dataset. Entries are immutable once published.
type Entry struct {
	Def       Definition
	Raw       *dataset.WideTable
	Table     *dataset.Table
	Quintiles []dataset.QuintileRow
	// Universe holds every region of the raw table, with or without values.
	Universe  []derive.Region
	Stats     reshape.Stats
	LoadedAt  time.Time
}

// Store reads and reshapes each dataset at most once per process.
type Store struct {
	cat     *Catalog
	dataDir string

	mu      sync.Mutex
	entries map[string]*entryOnce
}

type entryOnce struct {
	once  sync.Once
	entry *Entry
	err   error
}

// NewStore resolves relative dataset paths against dataDir.
func NewStore(cat *Catalog, dataDir string) *Store {
	if cat == nil {
		cat = Default()
	}
	return &Store{cat: cat, dataDir: dataDir, entries: make(map[string]*entryOnce)}
}

// Catalog returns a snapshot of the store's definitions.
func (s *Store) Catalog() *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Catalog{Datasets: slices.Clone(s.cat.Datasets)}
}

// Load returns the named dataset, reading it on first use. A failed load is
// remembered too: files never change during a run.
func (s *Store) Load(name string) (*Entry, error) {
	s.mu.Lock()
	def, err := s.cat.Lookup(name)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	eo, ok := s.entries[name]
	if !ok {
		eo = &entryOnce{}
		s.entries[name] = eo
	}
	s.mu.Unlock()

	eo.once.Do(func() {
		eo.entry, eo.err = s.build(def)
	})
	return eo.entry, eo.err
}

// LoadAll loads every catalogued dataset and returns the first failure.
func (s *Store) LoadAll() error {
	for _, n := range s.Catalog().Names() {
		if _, err := s.Load(n); err != nil {
			return err
		}
	}
	return nil
}

// Put publishes an already-built table under def, bypassing file reads. It
// may run concurrently with Load.
func (s *Store) Put(def Definition, raw *dataset.WideTable) (*Entry, error) {
	e, err := s.reshape(def, raw)
	if err != nil {
		return nil, err
	}
	eo := &entryOnce{entry: e}
	eo.once.Do(func() {})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[def.Name] = eo
	if _, err := s.cat.Lookup(def.Name); err != nil {
		s.cat.Datasets = append(s.cat.Datasets, def)
	}
	return e, nil
}

func (s *Store) build(def Definition) (*Entry, error) {
	path := def.Path
	if !filepath.IsAbs(path) && s.dataDir != "" {
		path = filepath.Join(s.dataDir, path)
	}
	raw, err := dataset.ReadFile(path, def.Sheet)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", def.Name, err)
	}
	return s.reshape(def, raw)
}

func (s *Store) reshape(def Definition, raw *dataset.WideTable) (*Entry, error) {
	start := time.Now()
	e := &Entry{Def: def, Raw: raw}
	var err error
	switch def.Kind {
	case KindQuintile:
		e.Quintiles, e.Stats, err = reshape.Quintiles(raw, def.QuintileOptions())
		if err == nil {
			e.Table = shareTable(def, e.Quintiles)
		}
	default:
		e.Table, e.Stats, err = reshape.Melt(raw, def.MeltOptions())
	}
	if err != nil {
		return nil, err
	}
	e.Universe = derive.UniverseOfWide(raw, def.EntityColumn, def.CodeColumn)
	e.LoadedAt = time.Now()
	metrics.DatasetLoadSeconds.WithLabelValues(def.Name).Observe(time.Since(start).Seconds())
	metrics.DatasetRecords.WithLabelValues(def.Name).Set(float64(len(e.Table.Records)))
	return e, nil
}

// shareTable exposes quintile shares as long records so quintile panels can be
// filtered and audited like any other dataset.
func shareTable(def Definition, rows []dataset.QuintileRow) *dataset.Table {
	t := dataset.NewTable(def.Name, def.EntityColumn, def.CodeColumn, "Quintile", "", def.ValueName)
	t.Records = make([]dataset.Record, 0, len(rows)*5)
	for _, q := range rows {
		for i, v := range q.Shares {
			t.Records = append(t.Records, dataset.Record{
				Entity: q.Entity,
				Code:   q.Code,
				Series: def.QuintileColumns[i],
				Year:   q.Year,
				Value:  v,
			})
		}
	}
	return t
}

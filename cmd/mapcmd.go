package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/ineqdash/internal/dataset"
	"github.com/KaramelBytes/ineqdash/internal/derive"
	"github.com/KaramelBytes/ineqdash/internal/query"
	"github.com/spf13/cobra"
)

var (
	mapSel  selectionFlags
	mapOut  outputFlags
	mapYear int
)

var mapCmd = &cobra.Command{
	Use:   "map <dataset>",
	Short: "Join one year of values onto every region for choropleth rendering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEntry(args[0])
		if err != nil {
			return err
		}
		recs := mapSel.records(e.Table.Records)
		year := mapYear
		if !cmd.Flags().Changed("year") {
			_, year, _ = query.YearBounds(recs)
		}
		entities := e.Def.DefaultEntities
		switch {
		case mapSel.all:
			entities = query.Entities(recs)
		case cmd.Flags().Changed("entity"):
			entities = mapSel.entities
		}
		selected := query.Apply(recs, query.Spec{Entities: entities, YearMin: year, YearMax: year})
		cells := derive.JoinForMap(e.Universe, derive.YearSlice(selected, year))

		t := dataset.NewTable(e.Def.Name+"_map", "Entity", "Code", "", "", e.Def.ValueName)
		t.Records = make([]dataset.Record, len(cells))
		with := 0
		for i, c := range cells {
			if c.HasData {
				with++
			}
			// Regions without data map to the neutral 0, not to a blank cell.
			t.Records[i] = dataset.Record{Entity: c.Entity, Code: c.Code, Year: year, Value: dataset.Num(c.Value)}
		}
		fmt.Fprintf(os.Stderr, "✓ %d regions, %d with data for %d\n", len(cells), with, year)
		return mapOut.write(t)
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapSel.bind(mapCmd)
	mapOut.bind(mapCmd)
	mapCmd.Flags().IntVar(&mapYear, "year", 0, "year to map (default: latest in data)")
}

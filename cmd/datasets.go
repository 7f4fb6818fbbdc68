package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/ineqdash/internal/query"
	"github.com/spf13/cobra"
)

var dsLoad bool

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List catalogued datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		for _, d := range store.Catalog().Datasets {
			fmt.Printf("- %s: %s (%s, %s)\n", d.Name, d.Title, d.Kind, d.Path)
			if !dsLoad {
				continue
			}
			e, err := store.Load(d.Name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
				continue
			}
			first, last, _ := query.YearBounds(e.Table.Records)
			fmt.Printf("    %d records, %d entities, %d series, years %d-%d\n",
				len(e.Table.Records), len(query.Entities(e.Table.Records)), len(query.SeriesNames(e.Table.Records)), first, last)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
	datasetsCmd.Flags().BoolVar(&dsLoad, "load", false, "load each dataset and print record counts")
}

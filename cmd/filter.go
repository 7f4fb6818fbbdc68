package cmd

import (
	"github.com/KaramelBytes/ineqdash/internal/query"
	"github.com/spf13/cobra"
)

var (
	filterSel     selectionFlags
	filterOut     outputFlags
	filterPresent bool
)

var filterCmd = &cobra.Command{
	Use:   "filter <dataset>",
	Short: "Select entities and a year range from a long-form dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEntry(args[0])
		if err != nil {
			return err
		}
		recs := filterSel.records(e.Table.Records)
		spec, err := filterSel.spec(cmd, recs, e.Def.DefaultEntities)
		if err != nil {
			return err
		}
		out := query.Apply(recs, spec)
		if filterPresent {
			out = query.Present(out)
		}
		warnEmpty(out, spec)
		return filterOut.write(e.Table.WithRecords(out))
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
	filterSel.bind(filterCmd)
	filterOut.bind(filterCmd)
	filterCmd.Flags().BoolVar(&filterPresent, "present", false, "drop records without a value")
}

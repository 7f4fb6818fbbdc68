package cmd

import (
	"fmt"

	"github.com/KaramelBytes/ineqdash/internal/derive"
	"github.com/KaramelBytes/ineqdash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	deltaSel      selectionFlags
	deltaPolarity string
	deltaJSON     bool
)

var deltaCmd = &cobra.Command{
	Use:   "delta <dataset>",
	Short: "Compare each entity's value at the first and last year of a range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEntry(args[0])
		if err != nil {
			return err
		}
		polName := e.Def.Polarity
		if deltaPolarity != "" {
			polName = deltaPolarity
		}
		pol, err := derive.ParsePolarity(polName)
		if err != nil {
			return err
		}
		recs := deltaSel.records(e.Table.Records)
		spec, err := deltaSel.spec(cmd, recs, e.Def.DefaultEntities)
		if err != nil {
			return err
		}
		calc := derive.DeltaCalculator{Polarity: pol}
		deltas := calc.Deltas(recs, spec.Entities, spec.YearMin, spec.YearMax)
		if deltaJSON {
			b, err := utils.PrettyJSON(deltas)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}
		if len(deltas) == 0 {
			fmt.Println(spec.EmptyMessage())
			return nil
		}
		fmt.Printf("%s %d -> %d (%s)\n", e.Def.ValueName, spec.YearMin, spec.YearMax, pol)
		for _, d := range deltas {
			fmt.Printf("- %s: %s -> %s (%s, %s)\n", d.Entity,
				derive.FormatValue(d.First), derive.FormatValue(d.Last), derive.FormatDelta(d.Delta), d.Direction)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deltaCmd)
	deltaSel.bind(deltaCmd)
	deltaCmd.Flags().StringVar(&deltaPolarity, "polarity", "", "lower_is_better|higher_is_better (default: from the catalogue)")
	deltaCmd.Flags().BoolVar(&deltaJSON, "json", false, "print deltas as JSON")
}

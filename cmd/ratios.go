package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/ineqdash/internal/catalog"
	"github.com/KaramelBytes/ineqdash/internal/derive"
	"github.com/KaramelBytes/ineqdash/internal/query"
	"github.com/KaramelBytes/ineqdash/internal/utils"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	ratiosDataset   string
	ratiosSel       selectionFlags
	ratiosOut       outputFlags
	ratiosReconcile string
	ratiosTolerance float64
)

var ratiosCmd = &cobra.Command{
	Use:   "ratios",
	Short: "Derive Palma, top/bottom and mid ratios from quintile shares",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEntry(ratiosDataset)
		if err != nil {
			return err
		}
		if e.Def.Kind != catalog.KindQuintile {
			return fmt.Errorf("%s is not a quintile dataset", e.Def.Name)
		}
		if ratiosReconcile != "" {
			if ratiosReconcile != derive.Palma && ratiosReconcile != derive.TopBottomRatio {
				return fmt.Errorf("--reconcile must be %s or %s", derive.Palma, derive.TopBottomRatio)
			}
			out := derive.Reconcile(e.Quintiles, ratiosReconcile, ratiosTolerance)
			b, err := utils.PrettyJSON(out)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			fmt.Fprintf(os.Stderr, "✓ %d rows differ from the derived %s by more than %g\n", len(out), ratiosReconcile, ratiosTolerance)
			return nil
		}
		t := derive.RatioTable(e.Def.Name, e.Quintiles)
		recs := t.Records
		if ratiosSel.series != "" && !lo.Contains(derive.RatioNames, ratiosSel.series) {
			return fmt.Errorf("unknown ratio %q (want one of %v)", ratiosSel.series, derive.RatioNames)
		}
		recs = ratiosSel.records(recs)
		spec, err := ratiosSel.spec(cmd, recs, query.Entities(recs))
		if err != nil {
			return err
		}
		recs = query.Apply(recs, spec)
		warnEmpty(recs, spec)
		return ratiosOut.write(t.WithRecords(recs))
	},
}

func init() {
	rootCmd.AddCommand(ratiosCmd)
	ratiosSel.bind(ratiosCmd)
	ratiosOut.bind(ratiosCmd)
	ratiosCmd.Flags().StringVar(&ratiosDataset, "dataset", "quintiles", "quintile dataset to derive from")
	ratiosCmd.Flags().StringVar(&ratiosReconcile, "reconcile", "", "compare the sourced palma|top_bottom_ratio column with the derived value")
	ratiosCmd.Flags().Float64Var(&ratiosTolerance, "tolerance", 0.01, "reconciliation tolerance")
}

package cmd

import (
	"fmt"

	"github.com/KaramelBytes/ineqdash/internal/analysis"
	"github.com/KaramelBytes/ineqdash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	auditRaw        bool
	auditJSON       bool
	auditOutput     string
	auditSampleRows int
	auditEntities   int
	auditOutliers   bool
	auditOutlierThr float64
)

var auditCmd = &cobra.Command{
	Use:   "audit <dataset>",
	Short: "Report missing values per column and summarize a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEntry(args[0])
		if err != nil {
			return err
		}
		var out string
		switch {
		case auditJSON:
			var f analysis.Frame = e.Table
			if auditRaw {
				f = e.Raw
			}
			b, err := utils.PrettyJSON(analysis.NullAudit(f))
			if err != nil {
				return err
			}
			out = string(b)
		case auditRaw:
			comp := analysis.NullAudit(e.Raw)
			out = fmt.Sprintf("%s: %d rows\n", e.Def.Name, comp.Rows)
			for _, c := range comp.Columns {
				out += fmt.Sprintf("- %s: %.1f%% missing (%d)\n", c.Name, c.Percent, c.Missing)
			}
		default:
			opt := analysis.DefaultOptions()
			if auditSampleRows > 0 {
				opt.SampleRows = auditSampleRows
			}
			if auditEntities > 0 {
				opt.MaxEntities = auditEntities
			}
			opt.Outliers = auditOutliers
			if auditOutlierThr > 0 {
				opt.OutlierThreshold = auditOutlierThr
			}
			out = analysis.Analyze(e.Table, opt).Markdown()
		}
		if auditOutput != "" {
			if err := utils.SafeWriteFile(auditOutput, []byte(out)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote audit to %s\n", auditOutput)
			return nil
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().BoolVar(&auditRaw, "raw", false, "audit the wide source table instead of the long form")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print the completeness report as JSON")
	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "optional path to write the report")
	auditCmd.Flags().IntVar(&auditSampleRows, "sample-rows", 5, "number of sample rows to include")
	auditCmd.Flags().IntVar(&auditEntities, "max-entities", 0, "cap on the per-entity summary (0 = default)")
	auditCmd.Flags().BoolVar(&auditOutliers, "outliers", true, "count robust outliers (MAD)")
	auditCmd.Flags().Float64Var(&auditOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/ineqdash/internal/catalog"
	"github.com/KaramelBytes/ineqdash/internal/chart"
	"github.com/KaramelBytes/ineqdash/internal/query"
	"github.com/spf13/cobra"
)

var (
	chartSel    selectionFlags
	chartKind   string
	chartOutput string
	chartTitle  string
	chartStack  []string
)

var chartCmd = &cobra.Command{
	Use:   "chart <dataset>",
	Short: "Render a line or stacked-bar chart as PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if chartOutput == "" {
			return fmt.Errorf("--output is required")
		}
		e, err := loadEntry(args[0])
		if err != nil {
			return err
		}
		recs := chartSel.records(e.Table.Records)
		spec, err := chartSel.spec(cmd, recs, e.Def.DefaultEntities)
		if err != nil {
			return err
		}
		recs = query.Present(query.Apply(recs, spec))

		opt := chart.Options{Title: chartTitle, YLabel: e.Def.ValueName}
		if opt.Title == "" {
			opt.Title = e.Def.Title
		}
		var draw func(io.Writer) error
		switch strings.ToLower(chartKind) {
		case "line":
			draw = func(w io.Writer) error { return chart.Line(w, recs, opt) }
		case "stacked":
			stack := chartStack
			if len(stack) == 0 && e.Def.Kind == catalog.KindQuintile {
				stack = e.Def.QuintileColumns
			}
			if len(stack) == 0 {
				return fmt.Errorf("--stack is required for wide datasets")
			}
			draw = func(w io.Writer) error { return chart.StackedBars(w, recs, stack, opt) }
		default:
			return fmt.Errorf("unsupported --kind: %s (use line|stacked)", chartKind)
		}
		if err := chart.SaveFile(chartOutput, draw); err != nil {
			if errors.Is(err, chart.ErrNoData) {
				return fmt.Errorf("%s: %w", spec.EmptyMessage(), err)
			}
			return err
		}
		fmt.Printf("✓ Wrote chart to %s\n", chartOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartSel.bind(chartCmd)
	chartCmd.Flags().StringVar(&chartKind, "kind", "line", "chart kind: line|stacked")
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "PNG file to write")
	chartCmd.Flags().StringVar(&chartTitle, "title", "", "chart title (default: dataset title)")
	chartCmd.Flags().StringSliceVar(&chartStack, "stack", nil, "series to stack bottom-up (default for quintile datasets: the quintile columns)")
}

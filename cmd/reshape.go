package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reshapeOut outputFlags

var reshapeCmd = &cobra.Command{
	Use:   "reshape <dataset>",
	Short: "Reshape a wide source table into long form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEntry(args[0])
		if err != nil {
			return err
		}
		st := e.Stats
		fmt.Fprintf(os.Stderr, "✓ Reshaped %s: %d rows x %d year columns -> %d records (%d missing, %d dropped)\n",
			e.Def.Name, st.Rows, st.YearColumns, len(e.Table.Records), st.Missing, st.Dropped)
		if st.Invalid > 0 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %d rows skipped with an unreadable year\n", st.Invalid)
		}
		return reshapeOut.write(e.Table)
	},
}

func init() {
	rootCmd.AddCommand(reshapeCmd)
	reshapeOut.bind(reshapeCmd)
}

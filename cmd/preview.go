package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the dataset schema and first rows as the model sees them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer ds.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Dataset: %s\n", ds.Path())
		fmt.Fprintf(out, "Table:   %s (%d rows)\n\n", ds.Table(), ds.RowCount())
		fmt.Fprintln(out, "Columns:")
		fmt.Fprintln(out, ds.Schema())
		fmt.Fprintln(out, "\nPreview:")
		fmt.Fprintln(out, ds.Preview())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

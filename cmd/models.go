package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datachat-cli/internal/ai"
	"github.com/KaramelBytes/datachat-cli/internal/tabular"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and the context window used to budget history",
	Long: `List known models and their context windows. Models missing from the list
still work; their prompts are budgeted as if the window were the default.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := &tabular.Table{Columns: []string{"model", "context_tokens"}}
		for _, mi := range ai.Models() {
			t.Rows = append(t.Rows, []any{mi.Name, mi.ContextTokens})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Grid())
		fmt.Fprintf(out, "Unlisted models assume %d tokens. Current model: %s\n", ai.DefaultContextTokens, selectModel(cfg, ""))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

package cli

import (
	"github.com/spf13/cobra"

	"entry-signals/internal/app"
)

var analyzePrice float64

var analyzeCmd = &cobra.Command{
	Use:   "analyze [asset...]",
	Short: "Run a one-shot analysis and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AnalyzeOptions{
			Assets: args,
			Price:  analyzePrice,
		}
		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzePrice, "price", 0, "Pin the current price instead of fetching it (single asset only)")
}

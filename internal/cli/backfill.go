package cli

import (
	"github.com/spf13/cobra"

	"stock-ingest/internal/app"
)

var (
	backfillSymbol string
	backfillDays   int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill historical daily prices for a symbol",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.BackfillOptions{
			Symbol: backfillSymbol,
			Days:   backfillDays,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillSymbol, "symbol", "", "Ticker symbol to backfill")
	backfillCmd.Flags().IntVar(&backfillDays, "days", 100, "Number of most recent trading days to load")
}

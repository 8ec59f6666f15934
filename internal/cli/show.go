package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stock-ingest/internal/app"
)

var (
	showTicker string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent stored prices for a ticker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showTicker == "" {
			return fmt.Errorf("--ticker must be provided")
		}
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Ticker: showTicker,
			Limit:  showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showTicker, "ticker", "", "Ticker symbol to display")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of price rows to display")
}

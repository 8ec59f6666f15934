package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stock-ingest/internal/app"
)

var (
	exportTicker    string
	exportFrom      string
	exportTo        string
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored price history as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportTicker == "" {
			return fmt.Errorf("--ticker must be provided")
		}

		opts := app.ExportOptions{
			Ticker:    exportTicker,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		}

		if exportFrom != "" {
			from, err := time.Parse("2006-01-02", exportFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if exportTo != "" {
			to, err := time.Parse("2006-01-02", exportTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportTicker, "ticker", "", "Ticker symbol to export")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start date (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End date (YYYY-MM-DD, exclusive)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Write price history to this CSV file")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Render price history to this PNG file")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (default from config)")
}

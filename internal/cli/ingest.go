package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stock-ingest/internal/app"
)

var (
	ingestWatch    bool
	ingestInterval time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest SYMBOL...",
	Short: "Run the ETL pipeline for one or more ticker symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestWatch && ingestInterval <= 0 {
			return fmt.Errorf("--interval must be greater than zero in watch mode")
		}

		opts := app.IngestOptions{
			Symbols:  args,
			Watch:    ingestWatch,
			Interval: ingestInterval,
		}

		return getApp().Ingest(cmd.Context(), opts)
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "Re-run the pipeline on a fixed interval until interrupted")
	ingestCmd.Flags().DurationVar(&ingestInterval, "interval", time.Hour, "Interval between runs in watch mode")
}

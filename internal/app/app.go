package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"stock-ingest/internal/config"
	"stock-ingest/internal/fetcher"
	"stock-ingest/internal/ratelimit"
	"stock-ingest/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newFetcher builds the rate-limited Alpha Vantage fetcher. The token bucket
// is shared by every request the returned fetcher makes: the upstream quota
// is global, not per symbol.
func (a *App) newFetcher() (fetcher.MarketDataFetcher, error) {
	cfg := a.Config.AlphaVantage
	if cfg.APIKey == "" {
		return nil, errors.New("alpha_vantage.api_key must be configured")
	}

	bucket, err := ratelimit.NewBucket(cfg.BucketCapacity, cfg.RefillRate())
	if err != nil {
		return nil, err
	}

	return fetcher.NewAlphaVantage(fetcher.Options{
		BaseURL:          cfg.BaseURL,
		APIKey:           cfg.APIKey,
		Timeout:          cfg.RequestTimeout,
		OutputSize:       cfg.OutputSize,
		MaxRetries:       cfg.MaxRetries,
		BaseDelay:        cfg.BaseDelay,
		ThrottleCooldown: cfg.ThrottleCooldown,
	}, bucket, a.Logger), nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// IngestOptions configure a pipeline run.
type IngestOptions struct {
	Symbols  []string
	Watch    bool
	Interval time.Duration
}

// BackfillOptions configure a historical price backfill.
type BackfillOptions struct {
	Symbol string
	Days   int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Ticker string
	Limit  int
}

// ExportOptions hold parameters for exporting stored price history.
type ExportOptions struct {
	Ticker    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

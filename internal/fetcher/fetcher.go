package fetcher

import (
	"context"
	"encoding/json"
)

// MarketDataFetcher retrieves raw market-data payloads by ticker symbol.
type MarketDataFetcher interface {
	GlobalQuote(ctx context.Context, symbol string) (json.RawMessage, error)
	DailySeries(ctx context.Context, symbol string) (json.RawMessage, error)
	CompanyOverview(ctx context.Context, symbol string) (json.RawMessage, error)
}

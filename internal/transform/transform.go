// Package transform maps raw Alpha Vantage payloads into storage records.
// Every function is pure: malformed or missing input yields a skip result
// wrapping ErrSkip, never a panic.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stock-ingest/internal/storage"
)

// ErrSkip marks input that cannot be transformed into a record.
var ErrSkip = errors.New("transform: cannot transform")

func skipf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSkip, fmt.Sprintf(format, args...))
}

// overviewPayload is the company-overview response shape. Alpha Vantage
// serialises every numeric as a string, with "None" for absent figures.
type overviewPayload struct {
	Name                 string `json:"Name"`
	Sector               string `json:"Sector"`
	MarketCapitalization string `json:"MarketCapitalization"`
	RevenueTTM           string `json:"RevenueTTM"`
	GrossProfitTTM       string `json:"GrossProfitTTM"`
	EPS                  string `json:"EPS"`
	PERatio              string `json:"PERatio"`
	DebtToEquityRatio    string `json:"DebtToEquityRatio"`
}

func (p overviewPayload) empty() bool {
	return p.Name == "" && p.Sector == "" && p.MarketCapitalization == ""
}

type quotePayload struct {
	GlobalQuote *globalQuote `json:"Global Quote"`
}

type globalQuote struct {
	Open   string `json:"02. open"`
	High   string `json:"03. high"`
	Low    string `json:"04. low"`
	Price  string `json:"05. price"`
	Volume string `json:"06. volume"`
}

type dailySeriesPayload struct {
	Series map[string]dailyBar `json:"Time Series (Daily)"`
}

type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// Stock maps a company-overview payload into a stock record. A missing name
// falls back to the symbol; a missing market cap stays nil, never zero.
func Stock(symbol string, overview json.RawMessage) (storage.Stock, error) {
	if len(overview) == 0 {
		return storage.Stock{}, skipf("no overview payload for %s", symbol)
	}

	var payload overviewPayload
	if err := json.Unmarshal(overview, &payload); err != nil {
		return storage.Stock{}, skipf("malformed overview payload for %s: %v", symbol, err)
	}
	if payload.empty() {
		return storage.Stock{}, skipf("empty overview payload for %s", symbol)
	}

	name := payload.Name
	if name == "" {
		name = symbol
	}

	return storage.Stock{
		Ticker:    symbol,
		Name:      name,
		Sector:    payload.Sector,
		MarketCap: parseInt64OrNull(payload.MarketCapitalization),
	}, nil
}

// Price maps a global-quote payload into a price record dated day. Absent
// numeric fields default to zero rather than failing the whole record.
func Price(stockID int64, quote json.RawMessage, day time.Time) (storage.Price, error) {
	if len(quote) == 0 {
		return storage.Price{}, skipf("no quote payload")
	}

	var payload quotePayload
	if err := json.Unmarshal(quote, &payload); err != nil {
		return storage.Price{}, skipf("malformed quote payload: %v", err)
	}
	if payload.GlobalQuote == nil {
		return storage.Price{}, skipf("quote payload has no Global Quote object")
	}

	q := payload.GlobalQuote
	return storage.Price{
		StockID: stockID,
		Date:    day.Truncate(24 * time.Hour),
		Open:    floatOrZero(q.Open),
		High:    floatOrZero(q.High),
		Low:     floatOrZero(q.Low),
		Close:   floatOrZero(q.Price),
		Volume:  intOrZero(q.Volume),
	}, nil
}

// Fundamental maps overview financials into a quarterly record. The quarter
// label reflects the calendar quarter of now, not anything in the payload.
func Fundamental(stockID int64, overview json.RawMessage, now time.Time) (storage.Fundamental, error) {
	if len(overview) == 0 {
		return storage.Fundamental{}, skipf("no overview payload")
	}

	var payload overviewPayload
	if err := json.Unmarshal(overview, &payload); err != nil {
		return storage.Fundamental{}, skipf("malformed overview payload: %v", err)
	}
	if payload.empty() {
		return storage.Fundamental{}, skipf("empty overview payload")
	}

	return storage.Fundamental{
		StockID: stockID,
		Quarter: quarterLabel(now),
		Revenue: parseInt64OrNull(payload.RevenueTTM),
		// The overview exposes no net income figure; gross profit is
		// the closest stand-in.
		NetIncome:    parseInt64OrNull(payload.GrossProfitTTM),
		EPS:          parseFloatOrNull(payload.EPS),
		PERatio:      parseFloatOrNull(payload.PERatio),
		DebtToEquity: parseFloatOrNull(payload.DebtToEquityRatio),
		ReportedAt:   now,
	}, nil
}

// DailyPrices maps a daily time-series payload into price records, newest
// first, capped at limit when limit is positive. Rows with unparsable dates
// are dropped individually.
func DailyPrices(stockID int64, series json.RawMessage, limit int) ([]storage.Price, error) {
	if len(series) == 0 {
		return nil, skipf("no daily series payload")
	}

	var payload dailySeriesPayload
	if err := json.Unmarshal(series, &payload); err != nil {
		return nil, skipf("malformed daily series payload: %v", err)
	}
	if len(payload.Series) == 0 {
		return nil, skipf("daily series payload has no Time Series (Daily) object")
	}

	dates := make([]string, 0, len(payload.Series))
	for date := range payload.Series {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}

	prices := make([]storage.Price, 0, len(dates))
	for _, date := range dates {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		bar := payload.Series[date]
		prices = append(prices, storage.Price{
			StockID: stockID,
			Date:    day,
			Open:    floatOrZero(bar.Open),
			High:    floatOrZero(bar.High),
			Low:     floatOrZero(bar.Low),
			Close:   floatOrZero(bar.Close),
			Volume:  intOrZero(bar.Volume),
		})
	}
	return prices, nil
}

// quarterLabel renders t as "YYYY-Qn".
func quarterLabel(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

// parseFloatOrNull treats empty strings, "None", and invalid literals as nil.
func parseFloatOrNull(s string) *float64 {
	d, ok := parseDecimal(s)
	if !ok {
		return nil
	}
	value := d.InexactFloat64()
	return &value
}

// parseInt64OrNull is parseFloatOrNull for integer-valued fields.
func parseInt64OrNull(s string) *int64 {
	d, ok := parseDecimal(s)
	if !ok {
		return nil
	}
	value := d.IntPart()
	return &value
}

func floatOrZero(s string) float64 {
	d, ok := parseDecimal(s)
	if !ok {
		return 0
	}
	return d.InexactFloat64()
}

func intOrZero(s string) int64 {
	d, ok := parseDecimal(s)
	if !ok {
		return 0
	}
	return d.IntPart()
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	if s == "" || s == "None" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

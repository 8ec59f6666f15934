package transform

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)

func TestStockFullOverview(t *testing.T) {
	overview := json.RawMessage(`{
		"Name": "Apple Inc.",
		"Sector": "Technology",
		"MarketCapitalization": "3000000000000"
	}`)

	stock, err := Stock("AAPL", overview)
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	if stock.Ticker != "AAPL" || stock.Name != "Apple Inc." || stock.Sector != "Technology" {
		t.Fatalf("unexpected stock: %+v", stock)
	}
	if stock.MarketCap == nil || *stock.MarketCap != 3000000000000 {
		t.Fatalf("market cap = %v, want 3000000000000", stock.MarketCap)
	}
}

func TestStockDefaults(t *testing.T) {
	overview := json.RawMessage(`{"Sector": "Energy"}`)

	stock, err := Stock("XOM", overview)
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	if stock.Name != "XOM" {
		t.Fatalf("missing name should default to the symbol, got %q", stock.Name)
	}
	if stock.MarketCap != nil {
		t.Fatalf("missing market cap should stay nil, got %v", *stock.MarketCap)
	}
}

func TestStockSkips(t *testing.T) {
	cases := []struct {
		name    string
		payload json.RawMessage
	}{
		{"nil payload", nil},
		{"empty object", json.RawMessage(`{}`)},
		{"malformed json", json.RawMessage(`{"Name": `)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Stock("AAPL", tc.payload); !errors.Is(err, ErrSkip) {
				t.Fatalf("err = %v, want ErrSkip", err)
			}
		})
	}
}

func TestPriceFromQuote(t *testing.T) {
	quote := json.RawMessage(`{
		"Global Quote": {
			"02. open": "148.50",
			"03. high": "151.20",
			"04. low": "147.90",
			"05. price": "150.00",
			"06. volume": "1000000"
		}
	}`)

	price, err := Price(7, quote, testNow)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if price.StockID != 7 {
		t.Fatalf("stock id = %d, want 7", price.StockID)
	}
	if price.Close != 150.0 {
		t.Fatalf("close = %v, want 150.0", price.Close)
	}
	if price.Volume != 1000000 {
		t.Fatalf("volume = %d, want 1000000", price.Volume)
	}
	if price.Open != 148.5 || price.High != 151.2 || price.Low != 147.9 {
		t.Fatalf("unexpected OHLC: %+v", price)
	}
}

func TestPriceMissingFieldsDefaultToZero(t *testing.T) {
	quote := json.RawMessage(`{"Global Quote": {"05. price": "150.00"}}`)

	price, err := Price(1, quote, testNow)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if price.Open != 0 || price.High != 0 || price.Low != 0 || price.Volume != 0 {
		t.Fatalf("absent fields should default to zero: %+v", price)
	}
	if price.Close != 150.0 {
		t.Fatalf("close = %v, want 150.0", price.Close)
	}
}

func TestPriceRequiresQuoteObject(t *testing.T) {
	if _, err := Price(1, json.RawMessage(`{"unexpected": true}`), testNow); !errors.Is(err, ErrSkip) {
		t.Fatalf("missing Global Quote should skip, err = %v", err)
	}
	if _, err := Price(1, nil, testNow); !errors.Is(err, ErrSkip) {
		t.Fatalf("nil payload should skip, err = %v", err)
	}
}

func TestFundamentalParseOrNull(t *testing.T) {
	overview := json.RawMessage(`{
		"Name": "Apple Inc.",
		"RevenueTTM": "385000000000",
		"GrossProfitTTM": "170000000000",
		"EPS": "6.42",
		"PERatio": "None",
		"DebtToEquityRatio": "not-a-number"
	}`)

	fundamental, err := Fundamental(3, overview, testNow)
	if err != nil {
		t.Fatalf("Fundamental: %v", err)
	}
	if fundamental.Revenue == nil || *fundamental.Revenue != 385000000000 {
		t.Fatalf("revenue = %v, want 385000000000", fundamental.Revenue)
	}
	if fundamental.NetIncome == nil || *fundamental.NetIncome != 170000000000 {
		t.Fatalf("net income = %v, want 170000000000", fundamental.NetIncome)
	}
	if fundamental.EPS == nil || *fundamental.EPS != 6.42 {
		t.Fatalf("eps = %v, want 6.42", fundamental.EPS)
	}
	if fundamental.PERatio != nil {
		t.Fatalf(`"None" should map to nil, got %v`, *fundamental.PERatio)
	}
	if fundamental.DebtToEquity != nil {
		t.Fatalf("invalid literal should map to nil, got %v", *fundamental.DebtToEquity)
	}
}

func TestFundamentalQuarterLabel(t *testing.T) {
	cases := []struct {
		month time.Month
		want  string
	}{
		{time.January, "2024-Q1"},
		{time.March, "2024-Q1"},
		{time.April, "2024-Q2"},
		{time.September, "2024-Q3"},
		{time.December, "2024-Q4"},
	}
	for _, tc := range cases {
		now := time.Date(2024, tc.month, 10, 0, 0, 0, 0, time.UTC)
		if got := quarterLabel(now); got != tc.want {
			t.Errorf("quarterLabel(%s) = %q, want %q", tc.month, got, tc.want)
		}
	}
}

func TestDailyPricesNewestFirstCapped(t *testing.T) {
	series := json.RawMessage(`{
		"Time Series (Daily)": {
			"2024-05-13": {"1. open": "1", "2. high": "2", "3. low": "0.5", "4. close": "1.5", "5. volume": "100"},
			"2024-05-14": {"1. open": "2", "2. high": "3", "3. low": "1.5", "4. close": "2.5", "5. volume": "200"},
			"2024-05-15": {"1. open": "3", "2. high": "4", "3. low": "2.5", "4. close": "3.5", "5. volume": "300"}
		}
	}`)

	prices, err := DailyPrices(9, series, 2)
	if err != nil {
		t.Fatalf("DailyPrices: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("len = %d, want cap at 2", len(prices))
	}
	if !prices[0].Date.Equal(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first row should be the newest day, got %v", prices[0].Date)
	}
	if prices[0].Close != 3.5 || prices[1].Close != 2.5 {
		t.Fatalf("unexpected closes: %v, %v", prices[0].Close, prices[1].Close)
	}
}

func TestDailyPricesSkipsWithoutSeries(t *testing.T) {
	if _, err := DailyPrices(1, json.RawMessage(`{"Meta Data": {}}`), 0); !errors.Is(err, ErrSkip) {
		t.Fatalf("missing series object should skip, err = %v", err)
	}
}

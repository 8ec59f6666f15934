package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"stock-ingest/internal/ratelimit"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"

	funcGlobalQuote = "GLOBAL_QUOTE"
	funcDailySeries = "TIME_SERIES_DAILY"
	funcOverview    = "OVERVIEW"
)

// Options parameterise the Alpha Vantage fetcher.
type Options struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	OutputSize       string
	MaxRetries       int
	BaseDelay        time.Duration
	ThrottleCooldown time.Duration
	PollInterval     time.Duration
}

// AlphaVantage fetches market data behind token-bucket admission control and
// an exponential-backoff retry loop. Each call makes at most MaxRetries
// remote requests; no state is carried between calls.
type AlphaVantage struct {
	opts    Options
	bucket  *ratelimit.Bucket
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewAlphaVantage constructs the fetcher.
func NewAlphaVantage(opts Options, bucket *ratelimit.Bucket, logger zerolog.Logger) *AlphaVantage {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.ThrottleCooldown <= 0 {
		opts.ThrottleCooldown = time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &AlphaVantage{
		opts:    opts,
		bucket:  bucket,
		logger:  logger.With().Str("component", "alpha_vantage_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// GlobalQuote retrieves the current quote for a symbol.
func (a *AlphaVantage) GlobalQuote(ctx context.Context, symbol string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("function", funcGlobalQuote)
	params.Set("symbol", symbol)
	return a.doRequest(ctx, params)
}

// DailySeries retrieves daily historical prices for a symbol.
func (a *AlphaVantage) DailySeries(ctx context.Context, symbol string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("function", funcDailySeries)
	params.Set("symbol", symbol)
	if a.opts.OutputSize != "" {
		params.Set("outputsize", a.opts.OutputSize)
	}
	return a.doRequest(ctx, params)
}

// CompanyOverview retrieves company fundamentals for a symbol.
func (a *AlphaVantage) CompanyOverview(ctx context.Context, symbol string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("function", funcOverview)
	params.Set("symbol", symbol)
	return a.doRequest(ctx, params)
}

// doRequest runs the admission-controlled retry loop for one logical fetch.
func (a *AlphaVantage) doRequest(ctx context.Context, params url.Values) (json.RawMessage, error) {
	params.Set("apikey", a.opts.APIKey)
	endpoint := a.baseURL + "?" + params.Encode()

	var lastErr *Error
	for attempt := 0; attempt < a.opts.MaxRetries; attempt++ {
		if err := a.waitForToken(ctx); err != nil {
			return nil, err
		}

		payload, attemptErr := a.attempt(ctx, endpoint)
		if attemptErr == nil {
			return payload, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !attemptErr.retryable() {
			a.logger.Error().Str("reason", attemptErr.Message).Msg("terminal api error")
			return nil, attemptErr
		}
		lastErr = attemptErr

		if attempt+1 >= a.opts.MaxRetries {
			break
		}

		delay := backoffDelay(a.opts.BaseDelay, attempt)
		if attemptErr.Kind == KindThrottled {
			// Throttling gets the long fixed cooldown, not the
			// exponential schedule.
			delay = a.opts.ThrottleCooldown
		}

		a.logger.Warn().
			Err(attemptErr).
			Int("attempt", attempt+1).
			Int("max_retries", a.opts.MaxRetries).
			Dur("delay", delay).
			Msg("retrying request")

		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &Error{Kind: KindRetriesExhausted, Message: "all retries failed", Err: lastErr}
}

// attempt issues one remote call and classifies the response.
func (a *AlphaVantage) attempt(ctx context.Context, endpoint string) (json.RawMessage, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Kind: KindThrottled, Status: resp.StatusCode, Message: "rate limited by api"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindTransport, Status: resp.StatusCode, Message: "unexpected status"}
	}

	// Alpha Vantage signals errors and rate-limit notices in-band.
	if msg := gjson.GetBytes(body, "Error Message"); msg.Exists() {
		return nil, &Error{Kind: KindAPIError, Message: msg.String()}
	}
	if note := gjson.GetBytes(body, "Note"); note.Exists() {
		return nil, &Error{Kind: KindThrottled, Message: note.String()}
	}

	return json.RawMessage(body), nil
}

// waitForToken polls the bucket until a token is granted or ctx is cancelled.
func (a *AlphaVantage) waitForToken(ctx context.Context) error {
	for {
		ok, err := a.bucket.TryAcquire(1)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := sleepCtx(ctx, a.opts.PollInterval); err != nil {
			return err
		}
	}
}

// backoffDelay doubles the base delay on each attempt: base, 2x, 4x, ...
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<attempt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ MarketDataFetcher = (*AlphaVantage)(nil)

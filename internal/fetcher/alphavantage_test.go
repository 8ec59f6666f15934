package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stock-ingest/internal/ratelimit"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testBucket(t *testing.T) *ratelimit.Bucket {
	t.Helper()
	b, err := ratelimit.NewBucket(100, 1000)
	if err != nil {
		t.Fatalf("NewBucket: %v", err)
	}
	return b
}

func newTestFetcher(t *testing.T, baseURL string) *AlphaVantage {
	t.Helper()
	return NewAlphaVantage(Options{
		BaseURL:          baseURL,
		APIKey:           "test-key",
		Timeout:          time.Second,
		MaxRetries:       5,
		BaseDelay:        time.Millisecond,
		ThrottleCooldown: 20 * time.Millisecond,
		PollInterval:     time.Millisecond,
	}, testBucket(t), noopLogger())
}

func TestGlobalQuoteSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Errorf("function = %q, want GLOBAL_QUOTE", got)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("symbol = %q, want AAPL", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "test-key" {
			t.Errorf("apikey = %q, want test-key", got)
		}
		w.Write([]byte(`{"Global Quote": {"05. price": "150.00"}}`))
	}))
	defer srv.Close()

	payload, err := newTestFetcher(t, srv.URL).GlobalQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GlobalQuote: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("payload should be non-empty")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestInBandErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"Error Message": "Invalid API call"}`))
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, srv.URL).CompanyOverview(context.Background(), "BAD")
	if ErrorKind(err) != KindAPIError {
		t.Fatalf("kind = %v, want KindAPIError (err: %v)", ErrorKind(err), err)
	}
	if calls.Load() != 1 {
		t.Fatalf("in-band error must not be retried, calls = %d", calls.Load())
	}
}

func TestRetriesExhaustedAfterMaxCalls(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, srv.URL).GlobalQuote(context.Background(), "AAPL")
	if ErrorKind(err) != KindRetriesExhausted {
		t.Fatalf("kind = %v, want KindRetriesExhausted (err: %v)", ErrorKind(err), err)
	}
	if calls.Load() != 5 {
		t.Fatalf("calls = %d, want exactly max_retries (5)", calls.Load())
	}

	var fe *Error
	if !errors.As(err, &fe) || fe.Err == nil {
		t.Fatalf("exhaustion should wrap the last attempt error: %v", err)
	}
}

func TestThrottleStatusForcesCooldown(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	start := time.Now()
	_, err := newTestFetcher(t, srv.URL).GlobalQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("fetch should recover after throttle: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("429 should wait the fixed cooldown before retrying, waited %v", elapsed)
	}
}

func TestInBandNoteForcesCooldown(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 5 requests per minute."}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	start := time.Now()
	_, err := newTestFetcher(t, srv.URL).GlobalQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("fetch should recover after soft throttle: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("soft throttle should wait the fixed cooldown, waited %v", elapsed)
	}
}

func TestBackoffSchedule(t *testing.T) {
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for attempt, expected := range want {
		if got := backoffDelay(time.Second, attempt); got != expected {
			t.Errorf("backoffDelay(1s, %d) = %v, want %v", attempt, got, expected)
		}
	}
}

func TestCancellationAbortsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	av := NewAlphaVantage(Options{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		Timeout:      time.Second,
		MaxRetries:   5,
		BaseDelay:    time.Hour,
		PollInterval: time.Millisecond,
	}, testBucket(t), noopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := av.GlobalQuote(ctx, "AAPL")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context deadline", err)
	}
}

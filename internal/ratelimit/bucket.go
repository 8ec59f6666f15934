package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidPermits indicates a non-positive permit count was requested.
var ErrInvalidPermits = errors.New("ratelimit: permit count must be positive")

// Bucket is a token-bucket admission controller. Tokens refill lazily at a
// fixed rate up to the burst capacity; TryAcquire never blocks.
type Bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	available  float64
	lastRefill time.Time

	now func() time.Time
}

// NewBucket constructs a full bucket holding at most capacity tokens,
// refilled at refillRate tokens per second.
func NewBucket(capacity int, refillRate float64) (*Bucket, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ratelimit: capacity must be positive, got %d", capacity)
	}
	if refillRate <= 0 {
		return nil, fmt.Errorf("ratelimit: refill rate must be positive, got %g", refillRate)
	}
	b := &Bucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		available:  float64(capacity),
		now:        time.Now,
	}
	b.lastRefill = b.now()
	return b, nil
}

// TryAcquire attempts to debit n tokens. It returns false when the bucket
// holds fewer than n tokens; the available count is left untouched in that
// case. Requests for more tokens than the bucket can ever hold are rejected.
func (b *Bucket) TryAcquire(n int) (bool, error) {
	if n <= 0 {
		return false, ErrInvalidPermits
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if float64(n) > b.capacity {
		return false, fmt.Errorf("ratelimit: requested %d tokens exceeds capacity %g", n, b.capacity)
	}

	b.refill()

	if b.available >= float64(n) {
		b.available -= float64(n)
		return true, nil
	}
	return false, nil
}

// Available reports the current token count after applying pending refill.
func (b *Bucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.available
}

// refill credits tokens for the time elapsed since the last refill, clamped
// to capacity. Caller must hold b.mu.
func (b *Bucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.available += elapsed * b.refillRate
		if b.available > b.capacity {
			b.available = b.capacity
		}
	}
	b.lastRefill = now
}

package pricesync

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Default pacing and retry values. The upstream provider enforces request
// rate limits and offers no parallel pagination, so both pauses are
// cooperative delays, not error backoff.
const (
	DefaultPagePause   = 500 * time.Millisecond
	DefaultBatchPause  = 1 * time.Second
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxAttempts = 5
)

// Pacer spaces out successive requests to a rate-limited provider.
// Tests substitute NopPacer instead of waiting on real clocks.
type Pacer interface {
	// Wait blocks until the next request may be dispatched or ctx ends.
	Wait(ctx context.Context) error
}

type intervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer returns a Pacer allowing one request per interval.
func NewIntervalPacer(interval time.Duration) Pacer {
	return &intervalPacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (p *intervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

type nopPacer struct{}

// NopPacer returns a Pacer that never waits.
func NopPacer() Pacer {
	return nopPacer{}
}

func (nopPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}

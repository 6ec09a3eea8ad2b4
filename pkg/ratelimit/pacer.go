// Package ratelimit paces outbound calls to the atSpoke API so a large
// paged walk does not trip the provider's own throttling.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	waitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spoke_ratelimit_wait_seconds",
		Help:    "Time spent waiting for the request pacer",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	throttledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spoke_ratelimit_throttled_total",
		Help: "Requests that had to wait for the pacer",
	})
)

// throttleThreshold is the wait above which a request counts as throttled.
const throttleThreshold = 10 * time.Millisecond

// Pacer gates provider requests with a token bucket. A nil *Pacer or a pacer
// built with a non-positive rate lets every request through.
type Pacer struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewPacer creates a pacer allowing perSecond requests with the given burst.
func NewPacer(perSecond float64, burst int, logger zerolog.Logger) *Pacer {
	if perSecond <= 0 {
		return &Pacer{logger: logger}
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}
}

// Wait blocks until the next request may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}

	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	waited := time.Since(start)
	waitSeconds.Observe(waited.Seconds())
	if waited > throttleThreshold {
		throttledTotal.Inc()
		p.logger.Debug().Dur("wait", waited).Msg("Request paced")
	}
	return nil
}

// Enabled reports whether the pacer limits anything.
func (p *Pacer) Enabled() bool {
	return p != nil && p.limiter != nil
}

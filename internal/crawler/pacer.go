package crawler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrOutOfTime is returned when the next request could not go out before the context deadline
var ErrOutOfTime = fmt.Errorf("pacer: next request would miss the deadline: %w", context.DeadlineExceeded)

// Pacer spaces outbound requests by a fixed minimum delay.
// Burst is 1, so no credit accumulates while the crawler is busy parsing.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer; a non-positive delay disables pacing
func NewPacer(delay time.Duration) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Throttle blocks until the next request may go out.
// It fails with a context error when the wait would outlive ctx.
func (p *Pacer) Throttle(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// the limiter refuses waits that would end past the deadline
		return ErrOutOfTime
	}
	return nil
}

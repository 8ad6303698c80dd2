package executor

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultOrderSpacing is the pause between consecutive order submissions.
const DefaultOrderSpacing = 100 * time.Millisecond

// Pacer spaces out order submissions so the exchange does not reject them
// for exceeding its throughput limit. Implementations must be safe for
// concurrent use; one Pacer is normally shared by every sender.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a token-bucket pacer allowing one submission per spacing.
func NewPacer(spacing time.Duration) *rate.Limiter {
	if spacing <= 0 {
		spacing = DefaultOrderSpacing
	}
	return rate.NewLimiter(rate.Every(spacing), 1)
}

// Unpaced is a Pacer that never waits.
type Unpaced struct{}

// Wait only reports context cancellation.
func (Unpaced) Wait(ctx context.Context) error { return ctx.Err() }

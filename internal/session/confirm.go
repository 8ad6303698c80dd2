package session

import (
	"context"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// ConfirmPolicy bounds the wait for the exchange to book an accepted tender.
type ConfirmPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Await calls probe up to MaxAttempts times, Interval apart, until it
// reports true. The result is TimedOut when every answer was false and Error
// when no attempt produced an answer at all.
func (p ConfirmPolicy) Await(ctx context.Context, probe func(ctx context.Context) (bool, error)) domain.Confirmation {
	attempts := max(p.MaxAttempts, 1)
	answered := false

	for i := 0; i < attempts; i++ {
		if i > 0 {
			t := time.NewTimer(p.Interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return domain.ConfirmationError
			case <-t.C:
			}
		}

		ok, err := probe(ctx)
		if err != nil {
			continue
		}
		if ok {
			return domain.ConfirmationConfirmed
		}
		answered = true
	}

	if !answered {
		return domain.ConfirmationError
	}
	return domain.ConfirmationTimedOut
}

package domain

import (
	"context"
	"time"
)

// LockManager provides cross-process locking. The returned unlock function
// is safe to call more than once.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus publishes events to out-of-process subscribers. Publish is
// fire-and-forget pub/sub; StreamAppend keeps a bounded durable log.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

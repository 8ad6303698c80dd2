package redis

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/tenderbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// streamMaxLen is the approximate cap on stream length, enforced via
// XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// SignalBus implements domain.SignalBus using Redis Pub/Sub for live
// subscribers and a capped Redis Stream as the durable event log.
type SignalBus struct {
	rdb    *redis.Client
	prefix string
	maxLen int64
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying(), prefix: c.prefix, maxLen: streamMaxLen}
}

// Publish sends payload to a Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	ch := namespaced(sb.prefix, channel)
	if err := sb.rdb.Publish(ctx, ch, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", ch, err)
	}
	return nil
}

// StreamAppend appends payload to stream, trimming it to roughly maxLen
// entries.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	if err := sb.rdb.XAdd(ctx, sb.xaddArgs(stream, payload)).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

func (sb *SignalBus) xaddArgs(stream string, payload []byte) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: namespaced(sb.prefix, stream),
		MaxLen: sb.maxLen,
		Approx: true,
		Values: map[string]any{"payload": payload},
	}
}

var _ domain.SignalBus = (*SignalBus)(nil)

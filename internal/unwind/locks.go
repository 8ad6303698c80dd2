package unwind

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

const distributedRetry = 50 * time.Millisecond

// TickerLocks serialises liquidation of the same ticker across jobs. A
// ticker's lock is created on first use and lives as long as the TickerLocks
// value. When a domain.LockManager is configured the local lock is followed
// by a distributed one so separate processes trading the same case do not
// race either.
type TickerLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}

	dist domain.LockManager
	ttl  time.Duration
}

// NewTickerLocks creates the lock table. dist may be nil.
func NewTickerLocks(dist domain.LockManager, ttl time.Duration) *TickerLocks {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TickerLocks{
		locks: make(map[string]chan struct{}),
		dist:  dist,
		ttl:   ttl,
	}
}

func (l *TickerLocks) slot(ticker string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[ticker]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[ticker] = ch
	}
	return ch
}

// Lock blocks until ticker is free or ctx is done. The returned unlock
// function must be called exactly once.
func (l *TickerLocks) Lock(ctx context.Context, ticker string) (func(), error) {
	ch := l.slot(ticker)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("unwind: lock %s: %w", ticker, ctx.Err())
	}

	if l.dist == nil {
		return func() { <-ch }, nil
	}

	release, err := l.acquireDistributed(ctx, ticker)
	if err != nil {
		<-ch
		return nil, err
	}
	return func() {
		release()
		<-ch
	}, nil
}

func (l *TickerLocks) acquireDistributed(ctx context.Context, ticker string) (func(), error) {
	key := "ticker:" + ticker
	for {
		release, err := l.dist.Acquire(ctx, key, l.ttl)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("unwind: distributed lock %s: %w", ticker, err)
		}
		t := time.NewTimer(distributedRetry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("unwind: distributed lock %s: %w", ticker, ctx.Err())
		case <-t.C:
		}
	}
}

// Len reports how many tickers have a lock.
func (l *TickerLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

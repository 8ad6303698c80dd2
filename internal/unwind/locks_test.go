package unwind

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

func TestTickerLocksSerialiseSameTicker(t *testing.T) {
	locks := NewTickerLocks(nil, 0)
	var inside, peak atomic.Int32
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Lock(context.Background(), "CRZY")
			if err != nil {
				t.Error(err)
				return
			}
			n := inside.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), peak.Load())
	require.Equal(t, 1, locks.Len())
}

func TestTickerLocksIndependentTickers(t *testing.T) {
	locks := NewTickerLocks(nil, 0)
	unlockA, err := locks.Lock(context.Background(), "A")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locks.Lock(ctx, "B")
	require.NoError(t, err)
	unlockB()
	require.Equal(t, 2, locks.Len())
}

func TestTickerLocksHonourContext(t *testing.T) {
	locks := NewTickerLocks(nil, 0)
	unlock, err := locks.Lock(context.Background(), "A")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, "A")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type flakyLockManager struct {
	mu       sync.Mutex
	held     int
	calls    int
	released int
}

func (m *flakyLockManager) Acquire(context.Context, string, time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.held {
		return nil, domain.ErrLockHeld
	}
	return func() {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
	}, nil
}

func TestTickerLocksRetryDistributedLock(t *testing.T) {
	dist := &flakyLockManager{held: 2}
	locks := NewTickerLocks(dist, time.Second)

	unlock, err := locks.Lock(context.Background(), "A")
	require.NoError(t, err)
	unlock()

	require.Equal(t, 3, dist.calls)
	require.Equal(t, 1, dist.released)

	// The local slot was released too.
	unlock, err = locks.Lock(context.Background(), "A")
	require.NoError(t, err)
	unlock()
}

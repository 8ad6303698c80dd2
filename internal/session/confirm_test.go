package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

func scripted(answers ...any) func(context.Context) (bool, error) {
	i := 0
	return func(context.Context) (bool, error) {
		a := answers[min(i, len(answers)-1)]
		i++
		if err, ok := a.(error); ok {
			return false, err
		}
		return a.(bool), nil
	}
}

func TestConfirmPolicy(t *testing.T) {
	p := ConfirmPolicy{MaxAttempts: 5, Interval: time.Millisecond}
	ctx := context.Background()

	require.Equal(t, domain.ConfirmationConfirmed, p.Await(ctx, scripted(false, domain.ErrTransport, true)))
	require.Equal(t, domain.ConfirmationTimedOut, p.Await(ctx, scripted(false)))
	require.Equal(t, domain.ConfirmationTimedOut, p.Await(ctx, scripted(domain.ErrTransport, false)))
	require.Equal(t, domain.ConfirmationError, p.Await(ctx, scripted(domain.ErrTransport)))
}

func TestConfirmPolicyBoundsAttempts(t *testing.T) {
	calls := 0
	p := ConfirmPolicy{MaxAttempts: 5, Interval: time.Millisecond}
	p.Await(context.Background(), func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	require.Equal(t, 5, calls)
}

func TestConfirmPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := ConfirmPolicy{MaxAttempts: 5, Interval: time.Hour}

	got := p.Await(ctx, scripted(false))
	require.Equal(t, domain.ConfirmationError, got)
}

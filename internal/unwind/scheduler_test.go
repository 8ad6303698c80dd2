package unwind

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

type funcTactic func(ctx context.Context, job *Job, deps Deps) error

func (funcTactic) Name() domain.UnwindTactic { return "test" }

func (f funcTactic) Run(ctx context.Context, job *Job, deps Deps) error { return f(ctx, job, deps) }

func TestSchedulerRunsAndDrainsJobs(t *testing.T) {
	chunker := &fakeChunker{}
	obs := &recordingObserver{}
	sched := NewScheduler(Immediate{BatchSize: 10000}, Deps{Orders: chunker, Observer: obs, Logger: slog.Default()})

	job := newTestJob(t, domain.ActionBuy, 100, domain.TacticImmediate)
	h, err := sched.Dispatch(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, job.ID(), h.ID)

	require.NoError(t, sched.Drain(context.Background()))
	<-h.Done()
	require.NoError(t, h.Err())

	snap := sched.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, domain.UnwindStateClosed, snap[0].State)
	require.Zero(t, sched.Running())
	require.Equal(t, []domain.EventType{domain.EventUnwindStarted, domain.EventUnwindBatch, domain.EventUnwindClosed}, obs.types())
}

func TestSchedulerRecordsFailures(t *testing.T) {
	boom := errors.New("boom")
	obs := &recordingObserver{}
	sched := NewScheduler(funcTactic(func(context.Context, *Job, Deps) error { return boom }), Deps{Observer: obs})

	job := newTestJob(t, domain.ActionBuy, 100, domain.TacticImmediate)
	h, err := sched.Dispatch(context.Background(), job)
	require.NoError(t, err)
	<-h.Done()

	require.ErrorIs(t, h.Err(), boom)
	require.NoError(t, sched.Drain(context.Background()))
	require.Equal(t, domain.UnwindStateFailed, job.State())
	require.Equal(t, "boom", job.Snapshot().Error)
	require.Equal(t, 1, sched.Failed())
	require.Contains(t, obs.types(), domain.EventUnwindFailed)
}

func TestSchedulerRecoversPanics(t *testing.T) {
	sched := NewScheduler(Immediate{}, Deps{})

	h, err := sched.Go(context.Background(), "square_off:CRZY", func(context.Context) error { panic("bad") })
	require.NoError(t, err)
	<-h.Done()

	require.ErrorContains(t, h.Err(), "panicked")
	require.Equal(t, 1, sched.Failed())
}

func TestSchedulerRefusesWorkWhileDraining(t *testing.T) {
	sched := NewScheduler(Immediate{}, Deps{})
	require.NoError(t, sched.Drain(context.Background()))

	_, err := sched.Go(context.Background(), "late", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrDraining)

	_, err = sched.Dispatch(context.Background(), newTestJob(t, domain.ActionBuy, 1, domain.TacticImmediate))
	require.ErrorIs(t, err, ErrDraining)
}

func TestSchedulerDrainHonoursContext(t *testing.T) {
	sched := NewScheduler(Immediate{}, Deps{})
	release := make(chan struct{})
	defer close(release)

	_, err := sched.Go(context.Background(), "stuck", func(context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, sched.Drain(ctx), context.DeadlineExceeded)
	require.Equal(t, 1, sched.Running())
}

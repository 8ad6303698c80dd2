package unwind

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

func newTestJob(t *testing.T, action domain.Action, qty int64, tactic domain.UnwindTactic) *Job {
	t.Helper()
	job, err := NewJob(domain.Tender{ID: 1, Ticker: "CRZY", Action: action, Quantity: qty, Price: 10}, testParams, tactic)
	require.NoError(t, err)
	return job
}

func TestImmediateSendsEverythingAtMarket(t *testing.T) {
	chunker := &fakeChunker{}
	obs := &recordingObserver{}
	job := newTestJob(t, domain.ActionBuy, 25000, domain.TacticImmediate)

	err := Immediate{BatchSize: 10000}.Run(context.Background(), job, Deps{Orders: chunker, Observer: obs, DryRun: true})
	require.NoError(t, err)

	require.Equal(t, []sentOrder{{Type: domain.OrderTypeMarket, Action: domain.ActionSell, Quantity: 25000, DryRun: true}}, chunker.sent())
	require.Equal(t, domain.UnwindStateClosed, job.State())
	require.Zero(t, job.Remaining())
	require.Equal(t, []domain.EventType{domain.EventUnwindBatch, domain.EventUnwindClosed}, obs.types())
}

func TestLimitRestsAtProfitPrice(t *testing.T) {
	chunker := &fakeChunker{}
	job := newTestJob(t, domain.ActionSell, 500, domain.TacticLimit)

	require.NoError(t, Limit{BatchSize: 10000}.Run(context.Background(), job, Deps{Orders: chunker}))

	sent := chunker.sent()
	require.Len(t, sent, 1)
	require.Equal(t, domain.OrderTypeLimit, sent[0].Type)
	require.Equal(t, domain.ActionBuy, sent[0].Action)
	require.Equal(t, 9.95, sent[0].Price)
	require.Equal(t, domain.UnwindStateClosed, job.State())
}

func TestJitterOffsetsOnlyImprovePrice(t *testing.T) {
	chunker := &fakeChunker{}
	job := newTestJob(t, domain.ActionBuy, 25000, domain.TacticJitter)
	tactic := Jitter{BatchSize: 10000, Step: 0.01, MaxSteps: 2}

	err := tactic.Run(context.Background(), job, Deps{Orders: chunker, Rand: &seqRand{seq: []int{0, 2, 1}}})
	require.NoError(t, err)

	require.Equal(t, []sentOrder{
		{Type: domain.OrderTypeMarket, Action: domain.ActionSell, Quantity: 10000},
		{Type: domain.OrderTypeLimit, Action: domain.ActionSell, Quantity: 10000, Price: 10.07},
		{Type: domain.OrderTypeLimit, Action: domain.ActionSell, Quantity: 5000, Price: 10.06},
	}, chunker.sent())
	require.Equal(t, domain.UnwindStateClosed, job.State())
}

func TestJitterBuySideSubtracts(t *testing.T) {
	chunker := &fakeChunker{}
	job := newTestJob(t, domain.ActionSell, 100, domain.TacticJitter)

	err := Jitter{BatchSize: 100, Step: 0.01, MaxSteps: 3}.Run(context.Background(), job, Deps{Orders: chunker, Rand: &seqRand{seq: []int{3}}})
	require.NoError(t, err)

	sent := chunker.sent()
	require.Len(t, sent, 1)
	require.Equal(t, domain.ActionBuy, sent[0].Action)
	require.Equal(t, 9.92, sent[0].Price)
}

func TestJitterDoesNotResubmitLostQuantity(t *testing.T) {
	chunker := &fakeChunker{lose: true}
	job := newTestJob(t, domain.ActionBuy, 20000, domain.TacticJitter)

	err := Jitter{BatchSize: 10000}.Run(context.Background(), job, Deps{Orders: chunker})
	require.NoError(t, err)
	require.Len(t, chunker.sent(), 2)
	require.Equal(t, domain.UnwindStateClosed, job.State())
}

func TestStopLossForceLiquidatesAtDeadline(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		chunker := &fakeChunker{}
		obs := &recordingObserver{}
		// Last price sits between stop (9.8) and target (10.05): nothing but
		// the deadline can trigger.
		market := &scriptedMarket{last: 10}
		job := newTestJob(t, domain.ActionBuy, 25000, domain.TacticStopLoss)
		deps := Deps{Orders: chunker, Market: market, Observer: obs}
		tactic := StopLoss{BatchSize: 10000, PollInterval: 500 * time.Millisecond}

		start := time.Now()
		require.NoError(t, tactic.Run(context.Background(), job, deps))

		require.Equal(t, domain.UnwindStateForceLiquidated, job.State())
		require.Equal(t, 1500*time.Millisecond, time.Since(start))
		require.Equal(t, []sentOrder{{Type: domain.OrderTypeMarket, Action: domain.ActionSell, Quantity: 25000}}, chunker.sent())
		require.Equal(t, []domain.EventType{domain.EventUnwindBatch, domain.EventForceLiquidated}, obs.types())

		// Terminal: running again neither trades nor re-enters MONITORING.
		require.NoError(t, tactic.Run(context.Background(), job, deps))
		require.Equal(t, domain.UnwindStateForceLiquidated, job.State())
		require.Len(t, chunker.sent(), 1)
	})
}

func TestStopLossIgnoresMissingLastPrice(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		chunker := &fakeChunker{}
		obs := &recordingObserver{}
		market := &scriptedMarket{last: 0}
		job := newTestJob(t, domain.ActionBuy, 100, domain.TacticStopLoss)

		err := StopLoss{PollInterval: time.Second}.Run(context.Background(), job, Deps{Orders: chunker, Market: market, Observer: obs})
		require.NoError(t, err)
		require.Equal(t, domain.UnwindStateForceLiquidated, job.State())
		require.NotContains(t, obs.types(), domain.EventStopLoss)
	})
}

func TestStopLossSkipsFailedPolls(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		chunker := &fakeChunker{}
		market := &scriptedMarket{last: 10, failCase: 2, tick: 3}
		job := newTestJob(t, domain.ActionBuy, 100, domain.TacticStopLoss)

		err := StopLoss{PollInterval: time.Second}.Run(context.Background(), job, Deps{Orders: chunker, Market: market})
		require.NoError(t, err)
		require.Equal(t, domain.UnwindStateForceLiquidated, job.State())
		require.Equal(t, 3, market.caseCalls)
	})
}

func TestStopLossDumpsOnAdverseMove(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		chunker := &fakeChunker{}
		obs := &recordingObserver{}
		market := &scriptedMarket{last: 9.5}
		job := newTestJob(t, domain.ActionBuy, 25000, domain.TacticStopLoss)

		err := StopLoss{BatchSize: 10000, PollInterval: time.Second}.Run(context.Background(), job, Deps{Orders: chunker, Market: market, Observer: obs})
		require.NoError(t, err)

		require.Equal(t, domain.UnwindStateClosed, job.State())
		require.Equal(t, []sentOrder{{Type: domain.OrderTypeMarket, Action: domain.ActionSell, Quantity: 25000}}, chunker.sent())
		require.Equal(t, []domain.EventType{domain.EventStopLoss, domain.EventUnwindBatch, domain.EventUnwindClosed}, obs.types())
	})
}

func TestStopLossWorksProfitTargetInBatches(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		chunker := &fakeChunker{}
		market := &scriptedMarket{last: 10.1}
		job := newTestJob(t, domain.ActionBuy, 25000, domain.TacticStopLoss)

		start := time.Now()
		err := StopLoss{BatchSize: 10000, PollInterval: time.Second}.Run(context.Background(), job, Deps{Orders: chunker, Market: market})
		require.NoError(t, err)

		var sizes []int64
		for _, o := range chunker.sent() {
			sizes = append(sizes, o.Quantity)
		}
		require.Equal(t, []int64{10000, 10000, 5000}, sizes)
		require.Equal(t, domain.UnwindStateClosed, job.State())
		require.Equal(t, 2*time.Second, time.Since(start))
	})
}

func TestStopLossStopsOnCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		market := &scriptedMarket{last: 10}
		job := newTestJob(t, domain.ActionBuy, 100, domain.TacticStopLoss)
		job.snap.DeadlineTick = 1000

		err := StopLoss{PollInterval: time.Second}.Run(ctx, job, Deps{Orders: &fakeChunker{}, Market: market})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, domain.UnwindStateMonitoring, job.State())
	})
}

func TestNewTacticRejectsUnknownName(t *testing.T) {
	_, err := NewTactic("twap", testParams)
	require.ErrorIs(t, err, domain.ErrValidation)

	tac, err := NewTactic(domain.TacticJitter, testParams)
	require.NoError(t, err)
	require.Equal(t, domain.TacticJitter, tac.Name())
}

package unwind

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

var testParams = Params{
	ProfitMargin:    0.05,
	StopLossPercent: 0.02,
	BatchSize:       10000,
	DeadlineTick:    4,
}

func TestNewJobOrientsPricesBySellUnwind(t *testing.T) {
	job, err := NewJob(domain.Tender{ID: 7, Ticker: "CRZY", Action: domain.ActionBuy, Quantity: 25000, Price: 10}, testParams, domain.TacticStopLoss)
	require.NoError(t, err)

	snap := job.Snapshot()
	require.NotEmpty(t, snap.ID)
	require.Equal(t, domain.ActionSell, snap.Action)
	require.Equal(t, 10.05, snap.ProfitPrice)
	require.Equal(t, 9.8, snap.StopLossPrice)
	require.Equal(t, int64(25000), snap.QuantityRemaining)
	require.Equal(t, domain.UnwindStateInit, snap.State)
	require.Equal(t, 4, snap.DeadlineTick)
}

func TestNewJobOrientsPricesByBuyUnwind(t *testing.T) {
	job, err := NewJob(domain.Tender{Ticker: "CRZY", Action: domain.ActionSell, Quantity: 100, Price: 10}, testParams, domain.TacticStopLoss)
	require.NoError(t, err)

	snap := job.Snapshot()
	require.Equal(t, domain.ActionBuy, snap.Action)
	require.Equal(t, 9.95, snap.ProfitPrice)
	require.Equal(t, 10.2, snap.StopLossPrice)
}

func TestNewJobRejectsBadTender(t *testing.T) {
	_, err := NewJob(domain.Tender{Ticker: "CRZY", Action: "HOLD", Quantity: 100, Price: 10}, testParams, domain.TacticImmediate)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewJob(domain.Tender{Ticker: "CRZY", Action: domain.ActionBuy, Quantity: 0, Price: 10}, testParams, domain.TacticImmediate)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestJobTerminalStateIsSticky(t *testing.T) {
	job, err := NewJob(domain.Tender{Ticker: "CRZY", Action: domain.ActionBuy, Quantity: 100, Price: 10}, testParams, domain.TacticStopLoss)
	require.NoError(t, err)

	require.True(t, job.transition(domain.UnwindStateMonitoring))
	require.True(t, job.transition(domain.UnwindStateForceLiquidated))
	require.False(t, job.transition(domain.UnwindStateMonitoring))
	require.False(t, job.fail(domain.ErrTransport))
	require.Equal(t, domain.UnwindStateForceLiquidated, job.State())
}

func TestJobConsumeNeverGoesNegative(t *testing.T) {
	job, err := NewJob(domain.Tender{Ticker: "CRZY", Action: domain.ActionBuy, Quantity: 100, Price: 10}, testParams, domain.TacticImmediate)
	require.NoError(t, err)

	require.Equal(t, int64(40), job.consume(60))
	require.Equal(t, int64(0), job.consume(60))
}

package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

type staticSecurities struct {
	secs []domain.Security
	err  error
}

func (s staticSecurities) Securities(context.Context, string) ([]domain.Security, error) {
	return s.secs, s.err
}

func TestRiskServiceRejectsNetBreach(t *testing.T) {
	svc := NewRiskService(staticSecurities{secs: []domain.Security{
		{Ticker: "A", Position: 90000},
		{Ticker: "B", Position: 0},
	}}, RiskConfig{NetLimit: 100000, GrossLimit: 250000}, slog.Default())

	d, err := svc.Check(context.Background(), domain.Tender{ID: 1, Ticker: "A", Action: domain.ActionBuy, Quantity: 20000})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, int64(110000), d.Snapshot.Net)
	require.Contains(t, d.Reason, "net position")
}

func TestRiskServiceRejectsGrossBreach(t *testing.T) {
	svc := NewRiskService(staticSecurities{secs: []domain.Security{
		{Ticker: "A", Position: 100000},
		{Ticker: "B", Position: -100000},
	}}, RiskConfig{NetLimit: 100000, GrossLimit: 250000}, slog.Default())

	d, err := svc.Check(context.Background(), domain.Tender{Ticker: "B", Action: domain.ActionSell, Quantity: 60000})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, domain.RiskSnapshot{Net: -60000, Gross: 260000}, d.Snapshot)
	require.Contains(t, d.Reason, "gross position")
}

func TestRiskServiceAllowsWithinLimits(t *testing.T) {
	svc := NewRiskService(staticSecurities{secs: []domain.Security{
		{Ticker: "A", Position: 50000},
		{Ticker: "B", Position: -20000},
	}}, RiskConfig{NetLimit: 100000, GrossLimit: 250000}, slog.Default())

	d, err := svc.Check(context.Background(), domain.Tender{Ticker: "A", Action: domain.ActionSell, Quantity: 30000})
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, domain.RiskSnapshot{Net: 0, Gross: 40000}, d.Snapshot)
}

func TestRiskServicePropagatesTransportError(t *testing.T) {
	svc := NewRiskService(staticSecurities{err: domain.ErrTransport}, RiskConfig{NetLimit: 1, GrossLimit: 1}, slog.Default())

	_, err := svc.Check(context.Background(), domain.Tender{Ticker: "A", Action: domain.ActionBuy, Quantity: 1})
	require.ErrorIs(t, err, domain.ErrTransport)
}

func TestProspectiveExposureUnknownTicker(t *testing.T) {
	snap := ProspectiveExposure([]domain.Security{{Ticker: "A", Position: -10}}, "Z", 25)
	require.Equal(t, domain.RiskSnapshot{Net: 15, Gross: 35}, snap)
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// RiskConfig holds the exchange-imposed position ceilings.
type RiskConfig struct {
	NetLimit   int64
	GrossLimit int64
}

// RiskDecision is the outcome of a pre-acceptance risk check. A breach is a
// normal outcome, not an error.
type RiskDecision struct {
	Allowed  bool
	Snapshot domain.RiskSnapshot
	Reason   string
}

// RiskService vetoes tenders whose fill would push net or gross exposure
// past the configured ceilings.
type RiskService struct {
	securities domain.SecuritiesReader
	cfg        RiskConfig
	logger     *slog.Logger
}

// NewRiskService creates a RiskService reading live positions from securities.
func NewRiskService(securities domain.SecuritiesReader, cfg RiskConfig, logger *slog.Logger) *RiskService {
	return &RiskService{
		securities: securities,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "risk")),
	}
}

// Check re-fetches every position and evaluates the exposure the tender's
// fill would produce. An error means positions could not be read and no
// decision was made.
func (s *RiskService) Check(ctx context.Context, t domain.Tender) (RiskDecision, error) {
	secs, err := s.securities.Securities(ctx, "")
	if err != nil {
		return RiskDecision{}, fmt.Errorf("risk_service: securities: %w", err)
	}

	snap := ProspectiveExposure(secs, t.Ticker, t.SignedQuantity())
	decision := RiskDecision{Allowed: true, Snapshot: snap}

	switch {
	case snap.Net > s.cfg.NetLimit:
		decision.Allowed = false
		decision.Reason = fmt.Sprintf("net position %d exceeds limit %d", snap.Net, s.cfg.NetLimit)
	case snap.Gross > s.cfg.GrossLimit:
		decision.Allowed = false
		decision.Reason = fmt.Sprintf("gross position %d exceeds limit %d", snap.Gross, s.cfg.GrossLimit)
	}

	if !decision.Allowed {
		s.logger.WarnContext(ctx, "risk_service: tender breaches position limits",
			slog.Int64("tender_id", t.ID),
			slog.String("ticker", t.Ticker),
			slog.Int64("net", snap.Net),
			slog.Int64("gross", snap.Gross),
			slog.Int64("net_limit", s.cfg.NetLimit),
			slog.Int64("gross_limit", s.cfg.GrossLimit),
		)
	}
	return decision, nil
}

// ProspectiveExposure computes net and gross position with delta applied to
// ticker. A ticker missing from secs starts flat.
func ProspectiveExposure(secs []domain.Security, ticker string, delta int64) domain.RiskSnapshot {
	var snap domain.RiskSnapshot
	applied := false
	for _, sec := range secs {
		pos := sec.Position
		if sec.Ticker == ticker && !applied {
			pos += delta
			applied = true
		}
		snap.Net += pos
		snap.Gross += abs(pos)
	}
	if !applied {
		snap.Net += delta
		snap.Gross += abs(delta)
	}
	return snap
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

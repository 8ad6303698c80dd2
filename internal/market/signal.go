package market

import "github.com/alanyoungcy/tenderbot/internal/domain"

// InvalidVWAP is the reference price returned when no decision could be made
// (unknown action or an empty book side).
const InvalidVWAP = -1.0

// Terms are the tender parameters a signal is evaluated for.
type Terms struct {
	Action   domain.Action
	Price    float64
	Quantity int64
	Margin   float64
}

// Signal is the outcome of evaluating a tender against a depth ladder.
type Signal struct {
	Accept        bool
	ReferenceVWAP float64
}

// Evaluate decides whether the tender terms clear the achievable VWAP by at
// least the margin.
//
// SELL tenders are priced against the bid ladder and accepted when
// price-margin > vwap. BUY tenders are priced against the ask ladder and
// accepted when price+margin < vwap. The reference VWAP is taken at the first
// rank whose cumulative volume covers the quantity; when the visible book is
// too thin, rank 0 (the best level only) is used on both sides, which is the
// strictest threshold either way.
func Evaluate(ladder domain.DepthLadder, t Terms) Signal {
	switch t.Action {
	case domain.ActionSell:
		vwap, ok := referenceVWAP(ladder.Bids, t.Quantity)
		if !ok {
			return Signal{Accept: false, ReferenceVWAP: InvalidVWAP}
		}
		return Signal{Accept: t.Price-t.Margin > vwap, ReferenceVWAP: vwap}
	case domain.ActionBuy:
		vwap, ok := referenceVWAP(ladder.Asks, t.Quantity)
		if !ok {
			return Signal{Accept: false, ReferenceVWAP: InvalidVWAP}
		}
		return Signal{Accept: t.Price+t.Margin < vwap, ReferenceVWAP: vwap}
	default:
		return Signal{Accept: false, ReferenceVWAP: InvalidVWAP}
	}
}

func referenceVWAP(rungs []domain.LadderRung, quantity int64) (float64, bool) {
	for _, r := range rungs {
		if r.CumulativeVolume >= quantity && r.Defined {
			return r.VWAP, true
		}
	}
	if len(rungs) == 0 || !rungs[0].Defined {
		return 0, false
	}
	return rungs[0].VWAP, true
}

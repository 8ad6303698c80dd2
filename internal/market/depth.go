// Package market turns exchange depth snapshots into cumulative-volume / VWAP
// ladders and evaluates tender terms against them.
package market

import (
	"cmp"
	"math"
	"slices"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// BuildLadder converts a raw book into bid and ask ladders of exactly depth
// rungs each. Bids are ranked best (highest) first, asks best (lowest) first.
// Missing ranks are zero-filled, so cumulative volume simply stops growing.
func BuildLadder(book domain.OrderBook, depth int) domain.DepthLadder {
	if depth < 0 {
		depth = 0
	}
	bids := rankLevels(book.Bids, func(a, b domain.DepthLevel) int { return cmp.Compare(b.Price, a.Price) })
	asks := rankLevels(book.Asks, func(a, b domain.DepthLevel) int { return cmp.Compare(a.Price, b.Price) })
	return domain.DepthLadder{
		Bids: accumulate(bids, depth),
		Asks: accumulate(asks, depth),
	}
}

// rankLevels sorts a copy of levels so the caller's slice is never touched.
func rankLevels(levels []domain.DepthLevel, order func(a, b domain.DepthLevel) int) []domain.DepthLevel {
	ranked := slices.Clone(levels)
	slices.SortStableFunc(ranked, order)
	return ranked
}

func accumulate(levels []domain.DepthLevel, depth int) []domain.LadderRung {
	rungs := make([]domain.LadderRung, depth)
	var (
		cumVolume int64
		notional  float64
	)
	for i := range depth {
		var lvl domain.DepthLevel
		if i < len(levels) {
			lvl = levels[i]
		}
		// Malformed levels count as empty.
		if lvl.Quantity < 0 || math.IsNaN(lvl.Price) || math.IsInf(lvl.Price, 0) {
			lvl = domain.DepthLevel{}
		}

		cumVolume += lvl.Quantity
		notional += lvl.Price * float64(lvl.Quantity)

		vwap, ok := VWAP(notional, cumVolume)
		rungs[i] = domain.LadderRung{
			Price:            lvl.Price,
			Quantity:         lvl.Quantity,
			CumulativeVolume: cumVolume,
			VWAP:             vwap,
			Defined:          ok,
		}
	}
	return rungs
}

// VWAP returns notional/volume rounded to cents. It returns (NaN, false) when
// volume is zero.
func VWAP(notional float64, volume int64) (float64, bool) {
	if volume <= 0 {
		return math.NaN(), false
	}
	return round2(notional / float64(volume)), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

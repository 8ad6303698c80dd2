package domain

// DepthLevel is a single price+quantity entry on one side of a book.
type DepthLevel struct {
	Price    float64
	Quantity int64
}

// OrderBook is the depth snapshot the exchange returns for one ticker.
type OrderBook struct {
	Ticker string
	Bids   []DepthLevel
	Asks   []DepthLevel
}

// LadderRung is one rank of a depth ladder. VWAP is only meaningful when
// Defined is true; an undefined rung carries NaN.
type LadderRung struct {
	Price            float64
	Quantity         int64
	CumulativeVolume int64
	VWAP             float64
	Defined          bool
}

// DepthLadder holds the cumulative-volume / VWAP ladders for both sides.
// Both slices have exactly the configured depth.
type DepthLadder struct {
	Bids []LadderRung
	Asks []LadderRung
}

package domain

// Security is the exchange's per-ticker view of the trader, including the
// current position. It is always re-fetched, never cached.
type Security struct {
	Ticker   string
	Position int64
	Last     float64
	Bid      float64
	BidSize  int64
	Ask      float64
	AskSize  int64
	Volume   int64
}

// RiskSnapshot aggregates exposure across all tradable instruments.
type RiskSnapshot struct {
	Net   int64
	Gross int64
}

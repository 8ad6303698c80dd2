package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

func TestBuildLadderSortsAndAccumulates(t *testing.T) {
	book := domain.OrderBook{
		Ticker: "CRZY",
		Bids: []domain.DepthLevel{
			{Price: 9, Quantity: 50},
			{Price: 10, Quantity: 100},
			{Price: 8.5, Quantity: 200},
		},
		Asks: []domain.DepthLevel{
			{Price: 10.5, Quantity: 70},
			{Price: 10.2, Quantity: 30},
		},
	}

	ladder := BuildLadder(book, 3)
	require.Len(t, ladder.Bids, 3)
	require.Len(t, ladder.Asks, 3)

	require.Equal(t, 10.0, ladder.Bids[0].Price)
	require.Equal(t, int64(100), ladder.Bids[0].CumulativeVolume)
	require.Equal(t, 10.0, ladder.Bids[0].VWAP)
	require.Equal(t, int64(150), ladder.Bids[1].CumulativeVolume)
	require.Equal(t, 9.67, ladder.Bids[1].VWAP)
	require.Equal(t, int64(350), ladder.Bids[2].CumulativeVolume)

	require.Equal(t, 10.2, ladder.Asks[0].Price)
	require.Equal(t, int64(100), ladder.Asks[1].CumulativeVolume)
	require.Equal(t, 10.41, ladder.Asks[1].VWAP)

	// Third ask rank is zero-filled.
	require.Equal(t, int64(100), ladder.Asks[2].CumulativeVolume)
	require.Equal(t, 0.0, ladder.Asks[2].Price)
	require.Equal(t, 10.41, ladder.Asks[2].VWAP)

	// Input is not reordered.
	require.Equal(t, 9.0, book.Bids[0].Price)
}

func TestBuildLadderEmptySideIsUndefined(t *testing.T) {
	ladder := BuildLadder(domain.OrderBook{Bids: []domain.DepthLevel{{Price: 5, Quantity: 10}}}, 2)

	for _, r := range ladder.Asks {
		require.False(t, r.Defined)
		require.True(t, math.IsNaN(r.VWAP))
		require.Zero(t, r.CumulativeVolume)
	}
	require.True(t, ladder.Bids[1].Defined)
}

func TestBuildLadderTreatsMalformedLevelsAsEmpty(t *testing.T) {
	ladder := BuildLadder(domain.OrderBook{
		Bids: []domain.DepthLevel{{Price: 10, Quantity: -5}, {Price: math.NaN(), Quantity: 3}},
	}, 2)

	require.Zero(t, ladder.Bids[0].CumulativeVolume)
	require.Zero(t, ladder.Bids[1].CumulativeVolume)
	require.False(t, ladder.Bids[1].Defined)
}

func TestBuildLadderInvariants(t *testing.T) {
	books := []domain.OrderBook{
		{
			Bids: []domain.DepthLevel{{Price: 25.1, Quantity: 1000}, {Price: 25.05, Quantity: 300}, {Price: 24.9, Quantity: 12000}, {Price: 24.8, Quantity: 5}},
			Asks: []domain.DepthLevel{{Price: 25.2, Quantity: 800}, {Price: 25.4, Quantity: 0}, {Price: 25.3, Quantity: 4000}},
		},
		{
			Bids: []domain.DepthLevel{{Price: 1.01, Quantity: 1}},
			Asks: []domain.DepthLevel{{Price: 99.99, Quantity: 1}, {Price: 0.5, Quantity: 100000}},
		},
	}

	for _, book := range books {
		ladder := BuildLadder(book, 6)
		sides := [][]domain.LadderRung{ladder.Bids, ladder.Asks}
		for _, side := range sides {
			lo, hi := math.Inf(1), math.Inf(-1)
			var prev int64
			for _, r := range side {
				require.GreaterOrEqual(t, r.CumulativeVolume, prev)
				prev = r.CumulativeVolume
				if r.Quantity > 0 {
					lo = math.Min(lo, r.Price)
					hi = math.Max(hi, r.Price)
				}
				if r.Defined {
					require.GreaterOrEqual(t, r.VWAP, round2(lo))
					require.LessOrEqual(t, r.VWAP, round2(hi))
				}
			}
		}
	}
}

package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// Analyzer fetches a fresh depth snapshot for a tender's ticker and
// evaluates the tender against it.
type Analyzer struct {
	books  domain.BookReader
	depth  int
	margin float64
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer that reads depth levels per side and
// requires margin of edge over the achievable VWAP.
func NewAnalyzer(books domain.BookReader, depth int, margin float64, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		books:  books,
		depth:  depth,
		margin: margin,
		logger: logger.With(slog.String("component", "analyzer")),
	}
}

// EvaluateTender returns the signal for t together with the ladder it was
// computed from. A gateway failure is returned as an error; the caller must
// skip the tender rather than evaluate an empty book.
func (a *Analyzer) EvaluateTender(ctx context.Context, t domain.Tender) (Signal, domain.DepthLadder, error) {
	book, err := a.books.OrderBook(ctx, t.Ticker, a.depth)
	if err != nil {
		return Signal{}, domain.DepthLadder{}, fmt.Errorf("analyzer: order book %s: %w", t.Ticker, err)
	}

	ladder := BuildLadder(book, a.depth)
	sig := Evaluate(ladder, Terms{
		Action:   t.Action,
		Price:    t.Price,
		Quantity: t.Quantity,
		Margin:   a.margin,
	})

	a.logger.DebugContext(ctx, "tender evaluated",
		slog.Int64("tender_id", t.ID),
		slog.String("ticker", t.Ticker),
		slog.String("action", string(t.Action)),
		slog.Int64("quantity", t.Quantity),
		slog.Float64("price", t.Price),
		slog.Float64("reference_vwap", sig.ReferenceVWAP),
		slog.Bool("accept", sig.Accept),
	)
	return sig, ladder, nil
}

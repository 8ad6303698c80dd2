// Package executor submits orders that may exceed the exchange's per-order
// size cap by splitting them into paced, capped sub-orders.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// ChunkReport summarises one chunked submission.
type ChunkReport struct {
	Submitted int
	Failed    int
	// Sent is the quantity the exchange acknowledged.
	Sent int64
	// Lost is the quantity of chunks whose submission failed.
	Lost int64
	// Abandoned is the quantity never attempted because the call stopped early.
	Abandoned int64
	Acks      []domain.Order
	Err       error
}

// Complete reports whether every chunk was acknowledged.
func (r ChunkReport) Complete() bool {
	return r.Failed == 0 && r.Abandoned == 0 && r.Err == nil
}

// Chunker submits orders in chunks of at most batchSize. Chunks of one call
// are strictly sequential.
type Chunker struct {
	orders domain.OrderSubmitter
	pacer  Pacer
	logger *slog.Logger
}

// NewChunker creates a Chunker. A nil pacer submits back to back.
func NewChunker(orders domain.OrderSubmitter, pacer Pacer, logger *slog.Logger) *Chunker {
	if pacer == nil {
		pacer = Unpaced{}
	}
	return &Chunker{
		orders: orders,
		pacer:  pacer,
		logger: logger.With(slog.String("component", "chunker")),
	}
}

// Submit sends req as a sequence of orders no larger than batchSize. A
// non-positive batchSize sends the whole quantity at once.
//
// A failed chunk is logged and counted, and the loop carries on with the
// rest of the quantity; nothing is resubmitted. A cancelled context or an
// invalid chunk stops the loop and the untouched remainder is reported as
// Abandoned.
func (c *Chunker) Submit(ctx context.Context, req domain.OrderRequest, batchSize int64) ChunkReport {
	remaining := req.Quantity()
	if batchSize <= 0 {
		batchSize = remaining
	}

	log := c.logger.With(
		slog.String("ticker", req.Ticker()),
		slog.String("action", string(req.Action())),
		slog.String("type", string(req.Type())),
		slog.Int64("total", remaining),
		slog.Int64("batch_size", batchSize),
	)

	var report ChunkReport
	for remaining > 0 {
		if err := c.pacer.Wait(ctx); err != nil {
			report.Err = fmt.Errorf("chunker: pace: %w", err)
			break
		}

		size := min(remaining, batchSize)
		chunk, err := req.WithQuantity(size)
		if err != nil {
			report.Err = fmt.Errorf("chunker: build chunk: %w", err)
			break
		}
		remaining -= size

		ack, err := c.orders.SubmitOrder(ctx, chunk)
		if err != nil {
			report.Failed++
			report.Lost += size
			log.WarnContext(ctx, "chunk submission failed",
				slog.Int64("size", size),
				slog.Int64("remaining", remaining),
				slog.String("error", err.Error()),
			)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				report.Err = err
				break
			}
			continue
		}

		report.Submitted++
		report.Sent += size
		report.Acks = append(report.Acks, ack)
		log.DebugContext(ctx, "chunk submitted",
			slog.Int64("order_id", ack.ID),
			slog.Int64("size", size),
			slog.Int64("remaining", remaining),
		)
	}

	report.Abandoned = remaining
	if report.Abandoned > 0 {
		log.WarnContext(ctx, "chunked submission stopped early",
			slog.Int64("abandoned", report.Abandoned),
			slog.Any("error", report.Err),
		)
	}
	return report
}

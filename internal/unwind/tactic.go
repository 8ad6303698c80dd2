package unwind

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
	"github.com/alanyoungcy/tenderbot/internal/executor"
)

// OrderChunker submits an order split into exchange-sized pieces.
// *executor.Chunker satisfies it.
type OrderChunker interface {
	Submit(ctx context.Context, req domain.OrderRequest, batchSize int64) executor.ChunkReport
}

// Rand picks jitter steps. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Deps is everything a Tactic needs to work a job.
type Deps struct {
	Orders   OrderChunker
	Market   domain.MarketReader
	Locks    *TickerLocks
	Observer Observer
	Rand     Rand
	DryRun   bool
	Logger   *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Rand == nil {
		d.Rand = globalRand{}
	}
	if d.Locks == nil {
		d.Locks = NewTickerLocks(nil, 0)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// Tactic drives a job to a terminal state. Run on a job that is already
// terminal is a no-op.
type Tactic interface {
	Name() domain.UnwindTactic
	Run(ctx context.Context, job *Job, deps Deps) error
}

// NewTactic returns the tactic registered under name.
func NewTactic(name domain.UnwindTactic, p Params) (Tactic, error) {
	switch name {
	case domain.TacticImmediate:
		return Immediate{BatchSize: p.BatchSize}, nil
	case domain.TacticLimit:
		return Limit{BatchSize: p.BatchSize}, nil
	case domain.TacticJitter:
		return Jitter{BatchSize: p.BatchSize, Step: p.JitterStep, MaxSteps: p.JitterMaxSteps}, nil
	case domain.TacticStopLoss:
		return StopLoss{BatchSize: p.BatchSize, PollInterval: p.PollInterval}, nil
	default:
		return nil, fmt.Errorf("unwind: %w: unknown tactic %q", domain.ErrValidation, name)
	}
}

// liquidate submits qty of the job's unwind side under the ticker lock and
// books everything the chunker attempted against the job. Quantity whose
// chunk failed is not retried.
func liquidate(ctx context.Context, job *Job, deps Deps, qty int64, limit *float64, batch int64) (executor.ChunkReport, error) {
	snap := job.Snapshot()

	typ := domain.OrderTypeMarket
	if limit != nil {
		typ = domain.OrderTypeLimit
	}
	req, err := domain.NewOrderRequest(snap.Ticker, typ, qty, snap.Action, limit, deps.DryRun)
	if err != nil {
		return executor.ChunkReport{}, fmt.Errorf("unwind: build order: %w", err)
	}

	unlock, err := deps.Locks.Lock(ctx, snap.Ticker)
	if err != nil {
		return executor.ChunkReport{}, err
	}
	report := deps.Orders.Submit(ctx, req, batch)
	unlock()

	left := job.consume(report.Sent + report.Lost)
	detail := map[string]any{
		"type":      string(typ),
		"sent":      report.Sent,
		"lost":      report.Lost,
		"remaining": left,
	}
	if limit != nil {
		detail["price"] = *limit
	}
	deps.Observer.JobEvent(ctx, job.Snapshot(), domain.EventUnwindBatch, detail)

	if report.Err != nil {
		return report, fmt.Errorf("unwind: liquidate %s: %w", snap.Ticker, report.Err)
	}
	return report, nil
}

func closeJob(ctx context.Context, job *Job, deps Deps, to domain.UnwindState, typ domain.EventType) {
	if job.transition(to) {
		deps.Observer.JobEvent(ctx, job.Snapshot(), typ, nil)
	}
}

// Immediate sends the full remaining quantity as one chunked market order.
type Immediate struct {
	BatchSize int64
}

func (Immediate) Name() domain.UnwindTactic { return domain.TacticImmediate }

func (t Immediate) Run(ctx context.Context, job *Job, deps Deps) error {
	deps = deps.withDefaults()
	if job.State().Terminal() {
		return nil
	}
	if _, err := liquidate(ctx, job, deps, job.Remaining(), nil, t.BatchSize); err != nil {
		return err
	}
	closeJob(ctx, job, deps, domain.UnwindStateClosed, domain.EventUnwindClosed)
	return nil
}

// Limit rests the full remaining quantity at the profit price.
type Limit struct {
	BatchSize int64
}

func (Limit) Name() domain.UnwindTactic { return domain.TacticLimit }

func (t Limit) Run(ctx context.Context, job *Job, deps Deps) error {
	deps = deps.withDefaults()
	if job.State().Terminal() {
		return nil
	}
	price := job.Snapshot().ProfitPrice
	if _, err := liquidate(ctx, job, deps, job.Remaining(), &price, t.BatchSize); err != nil {
		return err
	}
	closeJob(ctx, job, deps, domain.UnwindStateClosed, domain.EventUnwindClosed)
	return nil
}

// Jitter works the position off one batch at a time, choosing per batch
// between a market order and a limit order offset from the profit price by
// a random number of steps. Offsets only ever improve the price: a SELL
// unwind asks more, a BUY unwind bids less.
type Jitter struct {
	BatchSize int64
	Step      float64
	MaxSteps  int
}

func (Jitter) Name() domain.UnwindTactic { return domain.TacticJitter }

func (t Jitter) Run(ctx context.Context, job *Job, deps Deps) error {
	deps = deps.withDefaults()
	if job.State().Terminal() {
		return nil
	}
	snap := job.Snapshot()
	batch := t.BatchSize
	if batch <= 0 {
		batch = snap.QuantityRemaining
	}

	for remaining := job.Remaining(); remaining > 0; remaining = job.Remaining() {
		if err := ctx.Err(); err != nil {
			return err
		}
		qty := min(remaining, batch)

		var limit *float64
		if k := deps.Rand.IntN(max(t.MaxSteps, 0) + 1); k > 0 {
			offset := t.Step * float64(k)
			if snap.Action == domain.ActionBuy {
				offset = -offset
			}
			price := cents(snap.ProfitPrice + offset)
			limit = &price
		}
		if _, err := liquidate(ctx, job, deps, qty, limit, batch); err != nil {
			return err
		}
	}
	closeJob(ctx, job, deps, domain.UnwindStateClosed, domain.EventUnwindClosed)
	return nil
}

// StopLoss watches the last trade price once per poll interval. The deadline
// forces out the whole remainder, a stop-loss crossing dumps it at once, and
// the profit target is worked one batch per poll. Polls that fail to read
// the market are skipped.
type StopLoss struct {
	BatchSize    int64
	PollInterval time.Duration
}

func (StopLoss) Name() domain.UnwindTactic { return domain.TacticStopLoss }

func (t StopLoss) Run(ctx context.Context, job *Job, deps Deps) error {
	deps = deps.withDefaults()
	if job.State().Terminal() {
		return nil
	}
	job.transition(domain.UnwindStateMonitoring)

	interval := t.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := t.poll(ctx, job, deps)
		if err != nil || done {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t StopLoss) poll(ctx context.Context, job *Job, deps Deps) (bool, error) {
	snap := job.Snapshot()
	if snap.State.Terminal() {
		return true, nil
	}
	log := deps.Logger.With(slog.String("job_id", snap.ID), slog.String("ticker", snap.Ticker))

	status, err := deps.Market.CaseStatus(ctx)
	if err != nil {
		log.DebugContext(ctx, "stop-loss poll skipped", slog.String("error", err.Error()))
		return false, nil
	}
	if snap.DeadlineTick > 0 && status.Tick >= snap.DeadlineTick {
		log.InfoContext(ctx, "deadline reached, force liquidating",
			slog.Int("tick", status.Tick),
			slog.Int64("remaining", snap.QuantityRemaining),
		)
		if snap.QuantityRemaining > 0 {
			if _, err := liquidate(ctx, job, deps, snap.QuantityRemaining, nil, t.BatchSize); err != nil {
				return true, err
			}
		}
		closeJob(ctx, job, deps, domain.UnwindStateForceLiquidated, domain.EventForceLiquidated)
		return true, nil
	}

	secs, err := deps.Market.Securities(ctx, snap.Ticker)
	if err != nil || len(secs) == 0 {
		log.DebugContext(ctx, "stop-loss poll skipped", slog.Any("error", err))
		return false, nil
	}
	last := secs[0].Last
	if last <= 0 {
		// No trade printed yet.
		return false, nil
	}

	switch {
	case stopCrossed(snap, last):
		log.WarnContext(ctx, "stop loss crossed",
			slog.Float64("last", last),
			slog.Float64("stop", snap.StopLossPrice),
		)
		deps.Observer.JobEvent(ctx, snap, domain.EventStopLoss, map[string]any{"last": last})
		if _, err := liquidate(ctx, job, deps, snap.QuantityRemaining, nil, t.BatchSize); err != nil {
			return true, err
		}
		closeJob(ctx, job, deps, domain.UnwindStateClosed, domain.EventUnwindClosed)
		return true, nil

	case profitReached(snap, last):
		qty := snap.QuantityRemaining
		if t.BatchSize > 0 {
			qty = min(qty, t.BatchSize)
		}
		if _, err := liquidate(ctx, job, deps, qty, nil, t.BatchSize); err != nil {
			return true, err
		}
		if job.Remaining() == 0 {
			closeJob(ctx, job, deps, domain.UnwindStateClosed, domain.EventUnwindClosed)
			return true, nil
		}
	}
	return false, nil
}

func stopCrossed(j domain.UnwindJob, last float64) bool {
	if j.Action == domain.ActionSell {
		return last <= j.StopLossPrice
	}
	return last >= j.StopLossPrice
}

func profitReached(j domain.UnwindJob, last float64) bool {
	if j.Action == domain.ActionSell {
		return last >= j.ProfitPrice
	}
	return last <= j.ProfitPrice
}

// Package session drives one trading session: it polls the exchange clock,
// decides on every offered tender while trading is open and flattens the
// book once the trade-until tick has passed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
	"github.com/alanyoungcy/tenderbot/internal/executor"
	"github.com/alanyoungcy/tenderbot/internal/market"
	"github.com/alanyoungcy/tenderbot/internal/service"
	"github.com/alanyoungcy/tenderbot/internal/unwind"
)

// Mode selects how much of the decision path touches the exchange.
type Mode string

const (
	// ModeTrade accepts and declines tenders and trades for real.
	ModeTrade Mode = "trade"
	// ModePaper evaluates tenders and runs unwinds with dry-run orders. Tenders
	// are neither accepted nor declined.
	ModePaper Mode = "paper"
	// ModeMonitor only evaluates and records decisions.
	ModeMonitor Mode = "monitor"
)

const maxSquareOffRounds = 10

// TenderEvaluator scores a tender against live depth.
type TenderEvaluator interface {
	EvaluateTender(ctx context.Context, t domain.Tender) (market.Signal, domain.DepthLadder, error)
}

// RiskGate vetoes tenders that would breach position limits.
type RiskGate interface {
	Check(ctx context.Context, t domain.Tender) (service.RiskDecision, error)
}

// Journal records tender decisions.
type Journal interface {
	RecordDecision(ctx context.Context, d domain.TenderDecision)
}

// Emitter publishes session events.
type Emitter interface {
	Emit(ctx context.Context, e domain.Event)
}

// Archiver stores the session report once the session is over.
type Archiver interface {
	Archive(ctx context.Context) error
}

// Config holds the controller settings.
type Config struct {
	Mode           Mode
	TradeUntilTick int
	PollInterval   time.Duration
	Confirm        ConfirmPolicy
	SquareOffBatch int64
	Unwind         unwind.Params
}

// Deps are the controller's collaborators. Journal, Events and Archiver
// are optional.
type Deps struct {
	Gateway   domain.Gateway
	Evaluator TenderEvaluator
	Risk      RiskGate
	Chunker   unwind.OrderChunker
	Scheduler *unwind.Scheduler
	Locks     *unwind.TickerLocks
	Dedup     *executor.Dedup
	Journal   Journal
	Events    Emitter
	Archiver  Archiver
	Logger    *slog.Logger
}

// Status is a point-in-time view of the controller for the status API.
type Status struct {
	Mode           Mode                 `json:"mode"`
	Tick           int                  `json:"tick"`
	Period         int                  `json:"period"`
	TradingStatus  domain.TradingStatus `json:"trading_status"`
	TradeUntilTick int                  `json:"trade_until_tick"`
	SessionEnded   bool                 `json:"session_ended"`
	Cycles         int64                `json:"cycles"`
	LastCycle      time.Time            `json:"last_cycle"`
}

// Controller runs the per-cycle tender loop and the end-of-session flatten.
type Controller struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	ended  atomic.Bool
	cycles atomic.Int64

	mu        sync.Mutex
	last      domain.CaseStatus
	lastCycle time.Time
	endHandle *unwind.Handle
}

type nopJournal struct{}

func (nopJournal) RecordDecision(context.Context, domain.TenderDecision) {}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, domain.Event) {}

// New creates a Controller.
func New(cfg Config, deps Deps) *Controller {
	if deps.Journal == nil {
		deps.Journal = nopJournal{}
	}
	if deps.Events == nil {
		deps.Events = nopEmitter{}
	}
	if deps.Locks == nil {
		deps.Locks = unwind.NewTickerLocks(nil, 0)
	}
	if deps.Dedup == nil {
		deps.Dedup = executor.NewDedup(10 * time.Minute)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeTrade
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Controller{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With(slog.String("component", "session"), slog.String("mode", string(cfg.Mode))),
	}
}

// Run cycles once per poll interval until ctx is cancelled. Cycle failures
// are logged and the loop carries on.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "session controller started",
		slog.Int("trade_until_tick", c.cfg.TradeUntilTick),
		slog.Duration("poll_interval", c.cfg.PollInterval),
	)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := c.Cycle(ctx); err != nil && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "cycle skipped", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "session controller stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// Cycle runs one pass: read the clock, then either work the tender queue or
// trigger the end-of-session flatten. A transport failure skips the cycle.
func (c *Controller) Cycle(ctx context.Context) error {
	c.cycles.Add(1)
	c.deps.Dedup.Cleanup()

	status, err := c.deps.Gateway.CaseStatus(ctx)
	if err != nil {
		return fmt.Errorf("session: case status: %w", err)
	}
	c.mu.Lock()
	c.last = status
	c.lastCycle = time.Now().UTC()
	c.mu.Unlock()

	if !status.Active() {
		c.logger.DebugContext(ctx, "trading not active", slog.String("status", string(status.Status)))
		return nil
	}

	if status.Tick > c.cfg.TradeUntilTick {
		c.endSession(ctx, status)
		return nil
	}
	return c.processTenders(ctx, status)
}

func (c *Controller) processTenders(ctx context.Context, status domain.CaseStatus) error {
	tenders, err := c.deps.Gateway.Tenders(ctx)
	if err != nil {
		return fmt.Errorf("session: tenders: %w", err)
	}
	for _, t := range tenders {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.deps.Dedup.Seen(t.ID) {
			continue
		}
		c.handleTender(ctx, status, t)
	}
	return nil
}

func (c *Controller) handleTender(ctx context.Context, status domain.CaseStatus, t domain.Tender) {
	log := c.logger.With(
		slog.Int64("tender_id", t.ID),
		slog.String("ticker", t.Ticker),
		slog.String("action", string(t.Action)),
		slog.Int64("quantity", t.Quantity),
		slog.Float64("price", t.Price),
	)
	d := domain.TenderDecision{
		TenderID: t.ID,
		Ticker:   t.Ticker,
		Action:   t.Action,
		Quantity: t.Quantity,
		Price:    t.Price,
		Tick:     status.Tick,
	}

	sig, _, err := c.deps.Evaluator.EvaluateTender(ctx, t)
	if err != nil {
		c.skip(ctx, log, t, "evaluate", err)
		return
	}
	d.ReferenceVWAP = sig.ReferenceVWAP
	if !sig.Accept {
		d.Reason = "no edge over achievable vwap"
		c.decline(ctx, log, t, d)
		return
	}

	risk, err := c.deps.Risk.Check(ctx, t)
	if err != nil {
		c.skip(ctx, log, t, "risk check", err)
		return
	}
	d.Net, d.Gross = risk.Snapshot.Net, risk.Snapshot.Gross
	if !risk.Allowed {
		d.Reason = risk.Reason
		c.decline(ctx, log, t, d)
		return
	}

	switch c.cfg.Mode {
	case ModeMonitor:
		d.Accepted = true
		d.Reason = "monitor only"
		c.deps.Dedup.Mark(t.ID)
		c.record(ctx, d, domain.EventTenderAccepted)
		return
	case ModePaper:
		d.Accepted = true
		d.Reason = "paper"
		d.Confirmation = domain.ConfirmationConfirmed
		c.deps.Dedup.Mark(t.ID)
		c.record(ctx, d, domain.EventTenderAccepted)
		c.dispatch(ctx, log, t)
		return
	}

	before, err := c.position(ctx, t.Ticker)
	if err != nil {
		c.skip(ctx, log, t, "pre-accept position", err)
		return
	}

	ok, err := c.deps.Gateway.AcceptTender(ctx, t.ID, t.Price)
	if err != nil {
		c.skip(ctx, log, t, "accept", err)
		return
	}
	c.deps.Dedup.Mark(t.ID)
	if !ok {
		d.Reason = "acceptance rejected by exchange"
		log.WarnContext(ctx, "tender acceptance rejected")
		c.record(ctx, d, domain.EventTenderDeclined)
		return
	}

	d.Accepted = true
	d.Confirmation = c.cfg.Confirm.Await(ctx, func(ctx context.Context) (bool, error) {
		pos, err := c.position(ctx, t.Ticker)
		if err != nil {
			return false, err
		}
		return pos != before, nil
	})
	c.record(ctx, d, domain.EventTenderAccepted)
	log.InfoContext(ctx, "tender accepted",
		slog.Float64("reference_vwap", d.ReferenceVWAP),
		slog.Int64("net", d.Net),
		slog.Int64("gross", d.Gross),
		slog.String("confirmation", string(d.Confirmation)),
	)

	if d.Confirmation != domain.ConfirmationConfirmed {
		log.WarnContext(ctx, "tender not confirmed, no unwind dispatched")
		return
	}
	c.dispatch(ctx, log, t)
}

func (c *Controller) dispatch(ctx context.Context, log *slog.Logger, t domain.Tender) {
	job, err := unwind.NewJob(t, c.cfg.Unwind, c.deps.Scheduler.Tactic())
	if err != nil {
		log.ErrorContext(ctx, "build unwind job", slog.String("error", err.Error()))
		return
	}
	if _, err := c.deps.Scheduler.Dispatch(ctx, job); err != nil {
		log.ErrorContext(ctx, "dispatch unwind job", slog.String("error", err.Error()))
	}
}

func (c *Controller) decline(ctx context.Context, log *slog.Logger, t domain.Tender, d domain.TenderDecision) {
	if c.cfg.Mode == ModeTrade {
		if err := c.deps.Gateway.DeclineTender(ctx, t.ID); err != nil {
			// Left unmarked so the next cycle tries again.
			log.WarnContext(ctx, "decline failed", slog.String("error", err.Error()))
			return
		}
	}
	c.deps.Dedup.Mark(t.ID)
	log.InfoContext(ctx, "tender declined",
		slog.String("reason", d.Reason),
		slog.Float64("reference_vwap", d.ReferenceVWAP),
	)
	c.record(ctx, d, domain.EventTenderDeclined)
}

func (c *Controller) skip(ctx context.Context, log *slog.Logger, t domain.Tender, step string, err error) {
	log.WarnContext(ctx, "tender skipped", slog.String("step", step), slog.String("error", err.Error()))
	c.deps.Events.Emit(ctx, domain.Event{
		Type:     domain.EventTenderSkipped,
		TenderID: t.ID,
		Ticker:   t.Ticker,
		Detail:   map[string]any{"step": step, "error": err.Error()},
		Time:     time.Now().UTC(),
	})
}

func (c *Controller) record(ctx context.Context, d domain.TenderDecision, typ domain.EventType) {
	d.DecidedAt = time.Now().UTC()
	c.deps.Journal.RecordDecision(ctx, d)
	c.deps.Events.Emit(ctx, domain.Event{
		Type:     typ,
		TenderID: d.TenderID,
		Ticker:   d.Ticker,
		Detail: map[string]any{
			"action":         string(d.Action),
			"quantity":       d.Quantity,
			"price":          d.Price,
			"reference_vwap": d.ReferenceVWAP,
			"reason":         d.Reason,
			"confirmation":   string(d.Confirmation),
		},
		Time: d.DecidedAt,
	})
}

func (c *Controller) position(ctx context.Context, ticker string) (int64, error) {
	secs, err := c.deps.Gateway.Securities(ctx, ticker)
	if err != nil {
		return 0, err
	}
	for _, s := range secs {
		if s.Ticker == ticker {
			return s.Position, nil
		}
	}
	return 0, nil
}

// endSession fires once per Controller: it cancels resting orders, flattens
// every ticker and archives the session report as one supervised task.
func (c *Controller) endSession(ctx context.Context, status domain.CaseStatus) {
	if !c.ended.CompareAndSwap(false, true) {
		return
	}
	c.logger.InfoContext(ctx, "trade-until tick passed, ending session",
		slog.Int("tick", status.Tick),
		slog.Int("trade_until_tick", c.cfg.TradeUntilTick),
	)

	h, err := c.deps.Scheduler.Go(ctx, "session_end", c.flatten)
	if err != nil {
		c.logger.ErrorContext(ctx, "schedule session end", slog.String("error", err.Error()))
		return
	}
	c.mu.Lock()
	c.endHandle = h
	c.mu.Unlock()
}

func (c *Controller) flatten(ctx context.Context) error {
	var errs []error

	if c.cfg.Mode == ModeTrade {
		n, err := c.deps.Gateway.CancelAllOpen(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("cancel open orders: %w", err))
		}
		c.logger.InfoContext(ctx, "open orders cancelled", slog.Int("count", n))
	}

	if c.cfg.Mode != ModeMonitor {
		secs, err := c.heldPositions(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		var handles []*unwind.Handle
		for _, s := range secs {
			ticker := s.Ticker
			h, err := c.deps.Scheduler.Go(ctx, "square_off:"+ticker, func(ctx context.Context) error {
				return c.squareOff(ctx, ticker)
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("square off %s: %w", ticker, err))
				continue
			}
			handles = append(handles, h)
		}
		for _, h := range handles {
			select {
			case <-h.Done():
				if err := h.Err(); err != nil {
					errs = append(errs, err)
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	c.deps.Events.Emit(ctx, domain.Event{
		Type:   domain.EventSessionEnd,
		Detail: map[string]any{"errors": len(errs)},
		Time:   time.Now().UTC(),
	})
	if c.deps.Archiver != nil {
		if err := c.deps.Archiver.Archive(ctx); err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("session: end of session: %w", errors.Join(errs...))
	}
	return nil
}

// heldPositions lists non-flat securities, retrying transport failures
// once per poll interval.
func (c *Controller) heldPositions(ctx context.Context) ([]domain.Security, error) {
	for attempt := 0; attempt < maxSquareOffRounds; attempt++ {
		secs, err := c.deps.Gateway.Securities(ctx, "")
		if err == nil {
			var held []domain.Security
			for _, s := range secs {
				if s.Position != 0 {
					held = append(held, s)
				}
			}
			return held, nil
		}
		c.logger.WarnContext(ctx, "list positions failed", slog.String("error", err.Error()))
		if err := sleep(ctx, c.cfg.PollInterval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("session: list positions: %w", domain.ErrTransport)
}

// squareOff trades ticker flat with chunked market orders, re-reading the
// position after every pass.
func (c *Controller) squareOff(ctx context.Context, ticker string) error {
	unlock, err := c.deps.Locks.Lock(ctx, ticker)
	if err != nil {
		return err
	}
	defer unlock()

	log := c.logger.With(slog.String("ticker", ticker))
	dryRun := c.cfg.Mode == ModePaper

	for round := 0; round < maxSquareOffRounds; round++ {
		pos, err := c.position(ctx, ticker)
		if err != nil {
			log.WarnContext(ctx, "square-off position read failed", slog.String("error", err.Error()))
			if err := sleep(ctx, c.cfg.PollInterval); err != nil {
				return err
			}
			continue
		}
		if pos == 0 {
			return nil
		}

		action, qty := domain.ActionSell, pos
		if pos < 0 {
			action, qty = domain.ActionBuy, -pos
		}
		req, err := domain.NewMarketOrder(ticker, qty, action, dryRun)
		if err != nil {
			return fmt.Errorf("session: square off %s: %w", ticker, err)
		}

		report := c.deps.Chunker.Submit(ctx, req, c.cfg.SquareOffBatch)
		log.InfoContext(ctx, "square-off pass",
			slog.Int("round", round),
			slog.String("action", string(action)),
			slog.Int64("quantity", qty),
			slog.Int64("sent", report.Sent),
		)
		c.deps.Events.Emit(ctx, domain.Event{
			Type:   domain.EventSquareOff,
			Ticker: ticker,
			Detail: map[string]any{"action": string(action), "quantity": qty, "sent": report.Sent},
			Time:   time.Now().UTC(),
		})
		if report.Err != nil {
			return fmt.Errorf("session: square off %s: %w", ticker, report.Err)
		}
		if dryRun {
			return nil
		}
	}
	return fmt.Errorf("session: square off %s: position still open after %d passes", ticker, maxSquareOffRounds)
}

// SessionEnded reports whether the end-of-session flatten has been triggered.
func (c *Controller) SessionEnded() bool { return c.ended.Load() }

// EndOfSession returns the flatten task once it has been triggered.
func (c *Controller) EndOfSession() *unwind.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endHandle
}

// Status returns the controller's latest view of the session.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Mode:           c.cfg.Mode,
		Tick:           c.last.Tick,
		Period:         c.last.Period,
		TradingStatus:  c.last.Status,
		TradeUntilTick: c.cfg.TradeUntilTick,
		SessionEnded:   c.ended.Load(),
		Cycles:         c.cycles.Load(),
		LastCycle:      c.lastCycle,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

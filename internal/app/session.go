package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tenderbot/internal/config"
	"github.com/alanyoungcy/tenderbot/internal/domain"
	"github.com/alanyoungcy/tenderbot/internal/executor"
	"github.com/alanyoungcy/tenderbot/internal/market"
	"github.com/alanyoungcy/tenderbot/internal/server"
	"github.com/alanyoungcy/tenderbot/internal/server/handler"
	"github.com/alanyoungcy/tenderbot/internal/server/ws"
	"github.com/alanyoungcy/tenderbot/internal/service"
	"github.com/alanyoungcy/tenderbot/internal/session"
	"github.com/alanyoungcy/tenderbot/internal/unwind"
)

const (
	drainTimeout    = 30 * time.Second
	shutdownTimeout = 5 * time.Second
	archiveTimeout  = 30 * time.Second
)

// runtime is one fully wired session.
type runtime struct {
	controller *session.Controller
	scheduler  *unwind.Scheduler
	events     *service.EventService
	journal    *service.JournalService
	archive    *service.ArchiveService
	hub        *ws.Hub
}

// build assembles the decision path, the unwind scheduler and the event
// sinks for one session.
func (a *App) build(deps *Dependencies, mode session.Mode) (*runtime, error) {
	cfg := a.cfg
	rt := &runtime{}

	tactic, err := unwind.NewTactic(domain.UnwindTactic(cfg.Unwind.Tactic), unwindParams(cfg.Unwind))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	rt.hub = ws.NewHub(func() any { return rt.controller.Status() }, a.logger)

	var notifier service.EventNotifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}
	rt.events = service.NewEventService(deps.SignalBus, rt.hub, notifier, 0, a.logger)
	rt.journal = service.NewJournalService(deps.DecisionStore, deps.UnwindStore, deps.AuditStore, a.logger)

	chunker := executor.NewChunker(deps.Gateway, executor.NewPacer(cfg.Unwind.OrderSpacing.Duration), a.logger)
	locks := unwind.NewTickerLocks(deps.LockManager, cfg.Redis.LockTTL.Duration)

	rt.scheduler = unwind.NewScheduler(tactic, unwind.Deps{
		Orders:   chunker,
		Market:   deps.Gateway,
		Locks:    locks,
		Observer: unwind.Observers{rt.journal, rt.events},
		DryRun:   mode == session.ModePaper,
		Logger:   a.logger,
	})

	sessionID := uuid.NewString()
	rt.archive = service.NewArchiveService(deps.Archiver, rt.journal, rt.events, rt.scheduler, sessionID, string(mode), a.logger)

	rt.controller = session.New(session.Config{
		Mode:           mode,
		TradeUntilTick: cfg.Tender.TradeUntilTick,
		PollInterval:   cfg.Tender.PollInterval.Duration,
		Confirm: session.ConfirmPolicy{
			MaxAttempts: cfg.Tender.ConfirmAttempts,
			Interval:    cfg.Tender.ConfirmInterval.Duration,
		},
		SquareOffBatch: cfg.Unwind.SquareOffBatchSize,
		Unwind:         unwindParams(cfg.Unwind),
	}, session.Deps{
		Gateway:   deps.Gateway,
		Evaluator: market.NewAnalyzer(deps.Gateway, cfg.Tender.DepthPoints, cfg.Tender.MinVWAPMargin, a.logger),
		Risk: service.NewRiskService(deps.Gateway, service.RiskConfig{
			NetLimit:   cfg.Risk.NetLimit,
			GrossLimit: cfg.Risk.GrossLimit,
		}, a.logger),
		Chunker:   chunker,
		Scheduler: rt.scheduler,
		Locks:     locks,
		Dedup:     executor.NewDedup(cfg.Tender.DedupTTL.Duration),
		Journal:   rt.journal,
		Events:    rt.events,
		Archiver:  rt.archive,
		Logger:    a.logger,
	})

	a.logger.Info("session wired",
		slog.String("session_id", sessionID),
		slog.String("mode", string(mode)),
		slog.String("tactic", string(tactic.Name())),
		slog.Bool("postgres", deps.DecisionStore != nil),
		slog.Bool("redis", deps.SignalBus != nil),
		slog.Bool("s3", deps.Archiver != nil),
	)
	return rt, nil
}

// runSession runs the controller, the websocket hub and the HTTP server
// until ctx is cancelled, then drains the unwind scheduler.
func (a *App) runSession(ctx context.Context, deps *Dependencies, mode session.Mode) error {
	rt, err := a.build(deps, mode)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rt.controller.Run(gctx)
	})
	g.Go(func() error {
		return rt.hub.Run(gctx)
	})

	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:           a.cfg.Server.Port,
			CORSOrigins:    a.cfg.Server.CORSOrigins,
			APIKey:         a.cfg.Server.APIKey,
			RateLimitRPS:   a.cfg.Server.RateLimitRPS,
			RateLimitBurst: a.cfg.Server.RateLimitBurst,
		}, server.Handlers{
			Health:  handler.NewHealthHandler(deps.Checks, a.logger),
			Status:  handler.NewStatusHandler(rt.controller, rt.scheduler),
			Journal: handler.NewJournalHandler(rt.journal, rt.events, a.logger),
			History: handler.NewHistoryHandler(rt.journal, a.logger),
		}, rt.hub, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	runErr := g.Wait()
	a.finish(rt)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return ctx.Err()
}

// finish waits for in-flight unwinds and flushes notifications. A session
// stopped before its end-of-session flatten is still archived.
func (a *App) finish(rt *runtime) {
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := rt.scheduler.Drain(drainCtx); err != nil {
		a.logger.Warn("unwind tasks still running at exit",
			slog.Int("running", rt.scheduler.Running()),
			slog.String("error", err.Error()),
		)
	}

	if !rt.controller.SessionEnded() {
		archCtx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := rt.archive.Archive(archCtx); err != nil {
			a.logger.Error("archive interrupted session", slog.String("error", err.Error()))
		}
	}

	rt.events.Flush()
	a.logger.Info("session finished",
		slog.Int("jobs", len(rt.scheduler.Snapshot())),
		slog.Int("failed_tasks", rt.scheduler.Failed()),
	)
}

func unwindParams(c config.UnwindConfig) unwind.Params {
	return unwind.Params{
		ProfitMargin:    c.MinProfitMargin,
		StopLossPercent: c.StopLossPercent,
		BatchSize:       c.BatchSize,
		DeadlineTick:    c.DeadlineTick,
		PollInterval:    c.PollInterval.Duration,
		JitterStep:      c.JitterStep,
		JitterMaxSteps:  c.JitterMaxSteps,
	}
}

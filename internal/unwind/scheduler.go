package unwind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// ErrDraining is returned by Dispatch and Go once Drain has started.
var ErrDraining = errors.New("unwind: scheduler draining")

// Handle tracks one supervised task.
type Handle struct {
	ID   string
	Name string

	done chan struct{}
	err  error
}

// Done is closed when the task has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err is the task's result. It is only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Scheduler runs unwind jobs and other background work as supervised
// tasks. Every task is tracked until it returns, failures are logged and
// kept on the task's Handle, and Drain waits for all of them.
type Scheduler struct {
	tactic Tactic
	deps   Deps
	logger *slog.Logger

	group errgroup.Group

	mu       sync.Mutex
	draining bool
	jobs     []*Job
	handles  map[string]*Handle
	failed   int
}

// NewScheduler creates a Scheduler that runs every dispatched job with tactic.
func NewScheduler(tactic Tactic, deps Deps) *Scheduler {
	deps = deps.withDefaults()
	return &Scheduler{
		tactic:  tactic,
		deps:    deps,
		logger:  deps.Logger.With(slog.String("component", "unwind_scheduler")),
		handles: make(map[string]*Handle),
	}
}

// Tactic returns the tactic jobs are run with.
func (s *Scheduler) Tactic() domain.UnwindTactic { return s.tactic.Name() }

// Dispatch starts job as a detached task. The task stops early only if ctx
// is cancelled.
func (s *Scheduler) Dispatch(ctx context.Context, job *Job) (*Handle, error) {
	snap := job.Snapshot()
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return nil, ErrDraining
	}
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	s.deps.Observer.JobEvent(ctx, snap, domain.EventUnwindStarted, map[string]any{"tactic": string(s.tactic.Name())})
	s.logger.InfoContext(ctx, "unwind job dispatched",
		slog.String("job_id", snap.ID),
		slog.Int64("tender_id", snap.TenderID),
		slog.String("ticker", snap.Ticker),
		slog.String("action", string(snap.Action)),
		slog.Int64("quantity", snap.Quantity),
		slog.Float64("profit_price", snap.ProfitPrice),
		slog.Float64("stop_loss_price", snap.StopLossPrice),
	)

	return s.start(ctx, snap.ID, "unwind:"+snap.Ticker, func(ctx context.Context) error {
		err := s.tactic.Run(ctx, job, s.deps)
		if err != nil && job.fail(err) {
			s.deps.Observer.JobEvent(ctx, job.Snapshot(), domain.EventUnwindFailed, map[string]any{"error": err.Error()})
		}
		return err
	})
}

// Go runs fn as a supervised task that is not tied to a job.
func (s *Scheduler) Go(ctx context.Context, name string, fn func(ctx context.Context) error) (*Handle, error) {
	return s.start(ctx, uuid.NewString(), name, fn)
}

func (s *Scheduler) start(ctx context.Context, id, name string, fn func(ctx context.Context) error) (*Handle, error) {
	h := &Handle{ID: id, Name: name, done: make(chan struct{})}

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return nil, ErrDraining
	}
	s.handles[id] = h
	s.group.Go(func() error {
		defer close(h.done)
		h.err = s.runTask(ctx, h, fn)
		s.finish(ctx, h)
		// Task errors stay on the handle so one failure never masks another.
		return nil
	})
	s.mu.Unlock()
	return h, nil
}

func (s *Scheduler) runTask(ctx context.Context, h *Handle, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unwind: task %s panicked: %v", h.Name, r)
			s.logger.ErrorContext(ctx, "task panicked",
				slog.String("task_id", h.ID),
				slog.String("task", h.Name),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	return fn(ctx)
}

func (s *Scheduler) finish(ctx context.Context, h *Handle) {
	s.mu.Lock()
	delete(s.handles, h.ID)
	if h.err != nil {
		s.failed++
	}
	s.mu.Unlock()

	if h.err != nil {
		s.logger.ErrorContext(ctx, "task failed",
			slog.String("task_id", h.ID),
			slog.String("task", h.Name),
			slog.String("error", h.err.Error()),
		)
		return
	}
	s.logger.DebugContext(ctx, "task finished",
		slog.String("task_id", h.ID),
		slog.String("task", h.Name),
	)
}

// Drain stops accepting new tasks and waits for the running ones. It
// returns ctx's error if ctx ends first.
func (s *Scheduler) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	pending := len(s.handles)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "draining unwind tasks", slog.Int("pending", pending))

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("unwind: drain: %w", ctx.Err())
	}
}

// Snapshot lists every dispatched job in dispatch order.
func (s *Scheduler) Snapshot() []domain.UnwindJob {
	s.mu.Lock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	out := make([]domain.UnwindJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

// Running reports how many tasks have not returned yet.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Failed reports how many tasks returned an error.
func (s *Scheduler) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

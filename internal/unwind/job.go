// Package unwind liquidates the inventory picked up by accepted tenders.
// Each accepted tender becomes a Job that a Tactic drives from INIT to a
// terminal state while the Scheduler tracks it as a supervised task.
package unwind

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// Params are the per-deployment unwind settings shared by every job.
type Params struct {
	ProfitMargin    float64
	StopLossPercent float64
	BatchSize       int64
	DeadlineTick    int
	PollInterval    time.Duration
	JitterStep      float64
	JitterMaxSteps  int
}

// Observer receives job lifecycle events. Implementations must not block.
type Observer interface {
	JobEvent(ctx context.Context, job domain.UnwindJob, typ domain.EventType, detail map[string]any)
}

// Observers fans a job event out to every element.
type Observers []Observer

func (o Observers) JobEvent(ctx context.Context, job domain.UnwindJob, typ domain.EventType, detail map[string]any) {
	for _, obs := range o {
		if obs != nil {
			obs.JobEvent(ctx, job, typ, detail)
		}
	}
}

type nopObserver struct{}

func (nopObserver) JobEvent(context.Context, domain.UnwindJob, domain.EventType, map[string]any) {}

// Job is the mutable, concurrency-safe form of a domain.UnwindJob.
type Job struct {
	mu   sync.Mutex
	snap domain.UnwindJob
}

// NewJob derives an unwind job from an accepted tender. Profit and stop-loss
// prices are oriented by the unwind side: a SELL unwind profits above the
// tender price and stops out below it, a BUY unwind the reverse.
func NewJob(t domain.Tender, p Params, tactic domain.UnwindTactic) (*Job, error) {
	if !t.Action.Valid() {
		return nil, fmt.Errorf("unwind: new job: %w: action %q", domain.ErrValidation, t.Action)
	}
	if t.Quantity <= 0 {
		return nil, fmt.Errorf("unwind: new job: %w: quantity %d", domain.ErrValidation, t.Quantity)
	}

	action := t.Action.Opposite()
	var profit, stop float64
	if action == domain.ActionSell {
		profit = t.Price + p.ProfitMargin
		stop = t.Price * (1 - p.StopLossPercent)
	} else {
		profit = t.Price - p.ProfitMargin
		stop = t.Price * (1 + p.StopLossPercent)
	}

	now := time.Now().UTC()
	return &Job{snap: domain.UnwindJob{
		ID:                uuid.NewString(),
		TenderID:          t.ID,
		Ticker:            t.Ticker,
		Action:            action,
		Quantity:          t.Quantity,
		QuantityRemaining: t.Quantity,
		TenderPrice:       t.Price,
		ProfitPrice:       cents(profit),
		StopLossPrice:     cents(stop),
		DeadlineTick:      p.DeadlineTick,
		Tactic:            tactic,
		State:             domain.UnwindStateInit,
		CreatedAt:         now,
		UpdatedAt:         now,
	}}, nil
}

// Snapshot returns a copy of the job's current state.
func (j *Job) Snapshot() domain.UnwindJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap
}

func (j *Job) ID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap.ID
}

func (j *Job) State() domain.UnwindState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap.State
}

func (j *Job) Remaining() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap.QuantityRemaining
}

// transition moves the job to state to. Once a terminal state is reached
// every further transition is ignored and reported as false.
func (j *Job) transition(to domain.UnwindState) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.State.Terminal() {
		return false
	}
	j.snap.State = to
	j.snap.UpdatedAt = time.Now().UTC()
	return true
}

func (j *Job) fail(err error) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.State.Terminal() {
		return false
	}
	j.snap.State = domain.UnwindStateFailed
	j.snap.Error = err.Error()
	j.snap.UpdatedAt = time.Now().UTC()
	return true
}

// consume records qty as worked off and returns what is left.
func (j *Job) consume(qty int64) int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snap.QuantityRemaining = max(j.snap.QuantityRemaining-qty, 0)
	j.snap.UpdatedAt = time.Now().UTC()
	return j.snap.QuantityRemaining
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}

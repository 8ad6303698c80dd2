package unwind

import (
	"context"
	"sync"

	"github.com/alanyoungcy/tenderbot/internal/domain"
	"github.com/alanyoungcy/tenderbot/internal/executor"
)

type sentOrder struct {
	Type     domain.OrderType
	Action   domain.Action
	Quantity int64
	Price    float64
	DryRun   bool
}

type fakeChunker struct {
	mu     sync.Mutex
	orders []sentOrder
	lose   bool
}

func (f *fakeChunker) Submit(_ context.Context, req domain.OrderRequest, _ int64) executor.ChunkReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, _ := req.Price()
	f.orders = append(f.orders, sentOrder{
		Type:     req.Type(),
		Action:   req.Action(),
		Quantity: req.Quantity(),
		Price:    price,
		DryRun:   req.DryRun(),
	})
	if f.lose {
		return executor.ChunkReport{Failed: 1, Lost: req.Quantity()}
	}
	return executor.ChunkReport{Submitted: 1, Sent: req.Quantity()}
}

func (f *fakeChunker) sent() []sentOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentOrder, len(f.orders))
	copy(out, f.orders)
	return out
}

// scriptedMarket advances the tick by one on every CaseStatus call.
type scriptedMarket struct {
	mu        sync.Mutex
	tick      int
	last      float64
	failCase  int
	caseCalls int
}

func (m *scriptedMarket) CaseStatus(context.Context) (domain.CaseStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caseCalls++
	if m.caseCalls <= m.failCase {
		return domain.CaseStatus{}, domain.ErrTransport
	}
	m.tick++
	return domain.CaseStatus{Tick: m.tick, Status: domain.TradingStatusActive}, nil
}

func (m *scriptedMarket) Securities(_ context.Context, ticker string) ([]domain.Security, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return []domain.Security{{Ticker: ticker, Last: m.last}}, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.EventType
}

func (o *recordingObserver) JobEvent(_ context.Context, _ domain.UnwindJob, typ domain.EventType, _ map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, typ)
}

func (o *recordingObserver) types() []domain.EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.EventType, len(o.events))
	copy(out, o.events)
	return out
}

type seqRand struct {
	seq []int
	i   int
}

func (r *seqRand) IntN(n int) int {
	v := r.seq[r.i%len(r.seq)]
	r.i++
	return v % n
}

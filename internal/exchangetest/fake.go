// Package exchangetest provides an in-memory domain.Gateway for tests.
package exchangetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// Fake is a scriptable exchange. Market orders fill immediately against the
// held position unless DryRun is set; limit orders rest as OPEN.
type Fake struct {
	mu sync.Mutex

	Status    domain.CaseStatus
	Positions map[string]int64
	Last      map[string]float64
	Books     map[string]domain.OrderBook
	Offers    []domain.Tender

	// AcceptRejects makes AcceptTender report success=false.
	AcceptRejects bool
	// AcceptNoFill leaves the position untouched on acceptance.
	AcceptNoFill bool

	// Per-method failures returned as domain.ErrTransport.
	FailCase       bool
	FailSecurities bool
	FailBook       bool
	FailTenders    bool

	Accepted   []int64
	Declined   []int64
	Submitted  []domain.OrderRequest
	CancelAlls int

	nextID int64
	open   map[int64]domain.Order
}

// New returns an ACTIVE exchange at tick 1.
func New() *Fake {
	return &Fake{
		Status:    domain.CaseStatus{Name: "test", Period: 1, Tick: 1, TicksPerPeriod: 300, TotalPeriods: 1, Status: domain.TradingStatusActive},
		Positions: make(map[string]int64),
		Last:      make(map[string]float64),
		Books:     make(map[string]domain.OrderBook),
		open:      make(map[int64]domain.Order),
	}
}

func transport(op string) error {
	return fmt.Errorf("%w: fake %s unavailable", domain.ErrTransport, op)
}

// SetTick moves the session clock.
func (f *Fake) SetTick(tick int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status.Tick = tick
}

// Position returns the held position for ticker.
func (f *Fake) Position(ticker string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Positions[ticker]
}

// Offer lists a tender.
func (f *Fake) Offer(t domain.Tender) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Offers = append(f.Offers, t)
}

// SubmittedOrders returns a copy of every submitted request.
func (f *Fake) SubmittedOrders() []domain.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.OrderRequest, len(f.Submitted))
	copy(out, f.Submitted)
	return out
}

func (f *Fake) CaseStatus(context.Context) (domain.CaseStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCase {
		return domain.CaseStatus{}, transport("case")
	}
	return f.Status, nil
}

func (f *Fake) Securities(_ context.Context, ticker string) ([]domain.Security, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSecurities {
		return nil, transport("securities")
	}
	tickers := make([]string, 0, len(f.Positions))
	for t := range f.Positions {
		if ticker == "" || t == ticker {
			tickers = append(tickers, t)
		}
	}
	if ticker != "" && len(tickers) == 0 {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	out := make([]domain.Security, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, domain.Security{Ticker: t, Position: f.Positions[t], Last: f.Last[t]})
	}
	return out, nil
}

func (f *Fake) OrderBook(_ context.Context, ticker string, _ int) (domain.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailBook {
		return domain.OrderBook{}, transport("book")
	}
	book := f.Books[ticker]
	book.Ticker = ticker
	return book, nil
}

func (f *Fake) Tenders(context.Context) ([]domain.Tender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailTenders {
		return nil, transport("tenders")
	}
	out := make([]domain.Tender, len(f.Offers))
	copy(out, f.Offers)
	return out, nil
}

func (f *Fake) AcceptTender(_ context.Context, id int64, _ float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AcceptRejects {
		return false, nil
	}
	for i, t := range f.Offers {
		if t.ID != id {
			continue
		}
		f.Accepted = append(f.Accepted, id)
		f.Offers = append(f.Offers[:i], f.Offers[i+1:]...)
		if !f.AcceptNoFill {
			f.Positions[t.Ticker] += t.SignedQuantity()
		}
		return true, nil
	}
	return false, fmt.Errorf("%w: tender %d", domain.ErrNotFound, id)
}

func (f *Fake) DeclineTender(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.Offers {
		if t.ID == id {
			f.Offers = append(f.Offers[:i], f.Offers[i+1:]...)
			break
		}
	}
	f.Declined = append(f.Declined, id)
	return nil
}

func (f *Fake) SubmitOrder(_ context.Context, req domain.OrderRequest) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Submitted = append(f.Submitted, req)
	f.nextID++

	order := domain.Order{
		ID:       f.nextID,
		Ticker:   req.Ticker(),
		Type:     req.Type(),
		Action:   req.Action(),
		Quantity: float64(req.Quantity()),
		Status:   domain.OrderStatusTransacted,
	}
	if price, ok := req.Price(); ok {
		order.Price = price
	}
	switch {
	case req.DryRun():
	case req.Type() == domain.OrderTypeLimit:
		order.Status = domain.OrderStatusOpen
		f.open[order.ID] = order
	default:
		order.QuantityFilled = order.Quantity
		f.Positions[req.Ticker()] += req.Action().Sign() * req.Quantity()
	}
	return order, nil
}

func (f *Fake) Orders(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.open {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *Fake) CancelOrder(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.open[id]; !ok {
		return fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}
	delete(f.open, id)
	return nil
}

func (f *Fake) CancelAllOpen(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CancelAlls++
	n := len(f.open)
	clear(f.open)
	return n, nil
}

var _ domain.Gateway = (*Fake)(nil)

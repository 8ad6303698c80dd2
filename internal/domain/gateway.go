package domain

import "context"

// Every gateway method returns an error wrapping ErrTransport when the exchange
// could not be reached. Callers treat that as "no data, skip", never as an
// empty result.

// ClockReader reads the exchange session clock.
type ClockReader interface {
	CaseStatus(ctx context.Context) (CaseStatus, error)
}

// SecuritiesReader reads per-ticker positions and prices. An empty ticker
// returns every security.
type SecuritiesReader interface {
	Securities(ctx context.Context, ticker string) ([]Security, error)
}

// BookReader reads a depth snapshot limited to depth levels per side.
type BookReader interface {
	OrderBook(ctx context.Context, ticker string, depth int) (OrderBook, error)
}

// OrderSubmitter places a single validated order.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
}

// MarketReader is what a running unwind job observes.
type MarketReader interface {
	ClockReader
	SecuritiesReader
}

// TenderDesk lists, accepts and declines tenders.
type TenderDesk interface {
	Tenders(ctx context.Context) ([]Tender, error)
	AcceptTender(ctx context.Context, id int64, price float64) (bool, error)
	DeclineTender(ctx context.Context, id int64) error
}

// OrderDesk manages resting orders.
type OrderDesk interface {
	OrderSubmitter
	Orders(ctx context.Context, status OrderStatus) ([]Order, error)
	CancelOrder(ctx context.Context, id int64) error
	CancelAllOpen(ctx context.Context) (int, error)
}

// Gateway is the full exchange surface used by the session controller.
type Gateway interface {
	MarketReader
	BookReader
	TenderDesk
	OrderDesk
}

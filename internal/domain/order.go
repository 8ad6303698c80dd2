package domain

import (
	"fmt"
	"strings"
)

// OrderType is the exchange order type.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus tracks the exchange-side order lifecycle.
type OrderStatus string

const (
	OrderStatusOpen       OrderStatus = "OPEN"
	OrderStatusTransacted OrderStatus = "TRANSACTED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// OrderRequest is a validated order submission. The zero value is not usable;
// construct it with NewMarketOrder, NewLimitOrder or NewOrderRequest so the
// price-iff-LIMIT rule always holds.
type OrderRequest struct {
	ticker   string
	typ      OrderType
	quantity int64
	action   Action
	price    float64
	hasPrice bool
	dryRun   bool
}

// NewOrderRequest validates and builds an order. price may be nil for MARKET
// orders and is required for LIMIT orders.
func NewOrderRequest(ticker string, typ OrderType, quantity int64, action Action, price *float64, dryRun bool) (OrderRequest, error) {
	var errs []string
	if strings.TrimSpace(ticker) == "" {
		errs = append(errs, "ticker must not be empty")
	}
	if quantity <= 0 {
		errs = append(errs, fmt.Sprintf("quantity must be > 0, got %d", quantity))
	}
	if !action.Valid() {
		errs = append(errs, fmt.Sprintf("unknown action %q", action))
	}
	switch typ {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if price == nil {
			errs = append(errs, "price must be specified for LIMIT orders")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown order type %q", typ))
	}
	if len(errs) > 0 {
		return OrderRequest{}, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, "; "))
	}

	req := OrderRequest{
		ticker:   ticker,
		typ:      typ,
		quantity: quantity,
		action:   action,
		dryRun:   dryRun,
	}
	// MARKET orders never carry a price even if one was passed.
	if typ == OrderTypeLimit {
		req.price = *price
		req.hasPrice = true
	}
	return req, nil
}

// NewMarketOrder builds a MARKET order request.
func NewMarketOrder(ticker string, quantity int64, action Action, dryRun bool) (OrderRequest, error) {
	return NewOrderRequest(ticker, OrderTypeMarket, quantity, action, nil, dryRun)
}

// NewLimitOrder builds a LIMIT order request at price.
func NewLimitOrder(ticker string, quantity int64, action Action, price float64, dryRun bool) (OrderRequest, error) {
	return NewOrderRequest(ticker, OrderTypeLimit, quantity, action, &price, dryRun)
}

func (r OrderRequest) Ticker() string { return r.ticker }
func (r OrderRequest) Type() OrderType { return r.typ }
func (r OrderRequest) Quantity() int64 { return r.quantity }
func (r OrderRequest) Action() Action { return r.action }
func (r OrderRequest) DryRun() bool { return r.dryRun }

// Price returns the limit price and whether one is set.
func (r OrderRequest) Price() (float64, bool) {
	return r.price, r.hasPrice
}

// WithQuantity returns a copy of r for a different quantity, revalidated.
func (r OrderRequest) WithQuantity(quantity int64) (OrderRequest, error) {
	var price *float64
	if r.hasPrice {
		p := r.price
		price = &p
	}
	return NewOrderRequest(r.ticker, r.typ, quantity, r.action, price, r.dryRun)
}

func (r OrderRequest) String() string {
	if r.hasPrice {
		return fmt.Sprintf("%s %s %d %s @ %.2f", r.typ, r.action, r.quantity, r.ticker, r.price)
	}
	return fmt.Sprintf("%s %s %d %s", r.typ, r.action, r.quantity, r.ticker)
}

// Order is the exchange acknowledgement of a submitted order.
type Order struct {
	ID             int64
	Period         int
	Tick           int
	Ticker         string
	Type           OrderType
	Action         Action
	Quantity       float64
	QuantityFilled float64
	Price          float64
	VWAP           float64
	Status         OrderStatus
}

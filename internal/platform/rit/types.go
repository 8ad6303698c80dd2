package rit

import "github.com/alanyoungcy/tenderbot/internal/domain"

// RIT serves quantities and positions as JSON numbers with a fractional
// part, so they are decoded as float64 and truncated on conversion.

type caseDTO struct {
	Name           string `json:"name"`
	Period         int    `json:"period"`
	Tick           int    `json:"tick"`
	TicksPerPeriod int    `json:"ticks_per_period"`
	TotalPeriods   int    `json:"total_periods"`
	Status         string `json:"status"`
	EnforceLimits  bool   `json:"is_enforce_trading_limits"`
}

func (c caseDTO) toDomain() domain.CaseStatus {
	return domain.CaseStatus{
		Name:           c.Name,
		Period:         c.Period,
		Tick:           c.Tick,
		TicksPerPeriod: c.TicksPerPeriod,
		TotalPeriods:   c.TotalPeriods,
		Status:         domain.TradingStatus(c.Status),
		EnforceLimits:  c.EnforceLimits,
	}
}

type securityDTO struct {
	Ticker   string  `json:"ticker"`
	Position float64 `json:"position"`
	Last     float64 `json:"last"`
	Bid      float64 `json:"bid"`
	BidSize  float64 `json:"bid_size"`
	Ask      float64 `json:"ask"`
	AskSize  float64 `json:"ask_size"`
	Volume   float64 `json:"volume"`
}

func (s securityDTO) toDomain() domain.Security {
	return domain.Security{
		Ticker:   s.Ticker,
		Position: int64(s.Position),
		Last:     s.Last,
		Bid:      s.Bid,
		BidSize:  int64(s.BidSize),
		Ask:      s.Ask,
		AskSize:  int64(s.AskSize),
		Volume:   int64(s.Volume),
	}
}

type bookLevelDTO struct {
	Price          float64 `json:"price"`
	Quantity       float64 `json:"quantity"`
	QuantityFilled float64 `json:"quantity_filled"`
}

type bookDTO struct {
	Bids []bookLevelDTO `json:"bids"`
	Asks []bookLevelDTO `json:"asks"`
}

func levels(in []bookLevelDTO) []domain.DepthLevel {
	out := make([]domain.DepthLevel, 0, len(in))
	for _, l := range in {
		out = append(out, domain.DepthLevel{Price: l.Price, Quantity: int64(l.Quantity)})
	}
	return out
}

type tenderDTO struct {
	TenderID   int64   `json:"tender_id"`
	Period     int     `json:"period"`
	Tick       int     `json:"tick"`
	Expires    int     `json:"expires"`
	Caption    string  `json:"caption"`
	Ticker     string  `json:"ticker"`
	Action     string  `json:"action"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	IsFixedBid bool    `json:"is_fixed_bid"`
}

func (t tenderDTO) toDomain() domain.Tender {
	return domain.Tender{
		ID:       t.TenderID,
		Ticker:   t.Ticker,
		Action:   domain.Action(t.Action),
		Quantity: int64(t.Quantity),
		Price:    t.Price,
	}
}

type orderDTO struct {
	OrderID        int64    `json:"order_id"`
	Period         int      `json:"period"`
	Tick           int      `json:"tick"`
	TraderID       string   `json:"trader_id"`
	Ticker         string   `json:"ticker"`
	Type           string   `json:"type"`
	Quantity       float64  `json:"quantity"`
	Action         string   `json:"action"`
	Price          *float64 `json:"price"`
	QuantityFilled float64  `json:"quantity_filled"`
	VWAP           *float64 `json:"vwap"`
	Status         string   `json:"status"`
}

func (o orderDTO) toDomain() domain.Order {
	order := domain.Order{
		ID:             o.OrderID,
		Period:         o.Period,
		Tick:           o.Tick,
		Ticker:         o.Ticker,
		Type:           domain.OrderType(o.Type),
		Action:         domain.Action(o.Action),
		Quantity:       o.Quantity,
		QuantityFilled: o.QuantityFilled,
		Status:         domain.OrderStatus(o.Status),
	}
	if o.Price != nil {
		order.Price = *o.Price
	}
	if o.VWAP != nil {
		order.VWAP = *o.VWAP
	}
	return order
}

type successDTO struct {
	Success bool `json:"success"`
}

type errorDTO struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Wait    float64 `json:"wait"`
}

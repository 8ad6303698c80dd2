package domain

// TradingStatus is the exchange case status.
type TradingStatus string

const (
	TradingStatusActive  TradingStatus = "ACTIVE"
	TradingStatusPaused  TradingStatus = "PAUSED"
	TradingStatusStopped TradingStatus = "STOPPED"
)

// CaseStatus is the exchange's session clock.
type CaseStatus struct {
	Name           string
	Period         int
	Tick           int
	TicksPerPeriod int
	TotalPeriods   int
	Status         TradingStatus
	EnforceLimits  bool
}

// Active reports whether trading is currently allowed.
func (c CaseStatus) Active() bool {
	return c.Status == TradingStatusActive
}

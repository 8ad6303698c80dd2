package domain

import "time"

// UnwindState is the lifecycle state of an unwind job.
type UnwindState string

const (
	UnwindStateInit            UnwindState = "INIT"
	UnwindStateMonitoring      UnwindState = "MONITORING"
	UnwindStateClosed          UnwindState = "CLOSED"
	UnwindStateForceLiquidated UnwindState = "FORCE_LIQUIDATED"
	UnwindStateFailed          UnwindState = "FAILED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s UnwindState) Terminal() bool {
	switch s {
	case UnwindStateClosed, UnwindStateForceLiquidated, UnwindStateFailed:
		return true
	default:
		return false
	}
}

// UnwindTactic names a liquidation tactic. One is picked per deployment.
type UnwindTactic string

const (
	TacticImmediate UnwindTactic = "immediate"
	TacticLimit     UnwindTactic = "limit"
	TacticJitter    UnwindTactic = "jitter"
	TacticStopLoss  UnwindTactic = "stoploss"
)

// UnwindJob describes the liquidation of one accepted tender. Action is the
// opposite of the tender's action.
type UnwindJob struct {
	ID                string
	TenderID          int64
	Ticker            string
	Action            Action
	Quantity          int64
	QuantityRemaining int64
	TenderPrice       float64
	ProfitPrice       float64
	StopLossPrice     float64
	DeadlineTick      int
	Tactic            UnwindTactic
	State             UnwindState
	Error             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

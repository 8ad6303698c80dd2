package domain

import (
	"fmt"
	"time"
)

// Action is the side of a tender or order from this trader's point of view.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Valid reports whether a is one of the two tradable actions.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell
}

// Opposite returns the action that flattens a position opened by a.
// Unknown actions map to themselves.
func (a Action) Opposite() Action {
	switch a {
	case ActionBuy:
		return ActionSell
	case ActionSell:
		return ActionBuy
	default:
		return a
	}
}

// Sign is +1 for BUY, -1 for SELL and 0 for anything else.
func (a Action) Sign() int64 {
	switch a {
	case ActionBuy:
		return 1
	case ActionSell:
		return -1
	default:
		return 0
	}
}

// ParseAction normalises an exchange action string.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: unknown action %q", ErrValidation, s)
	}
	return a, nil
}

// Tender is an exchange-offered block trade. It is immutable once observed.
type Tender struct {
	ID       int64
	Ticker   string
	Action   Action
	Quantity int64
	Price    float64
}

// SignedQuantity is the position change accepting the tender would cause.
func (t Tender) SignedQuantity() int64 {
	return t.Action.Sign() * t.Quantity
}

// Confirmation is the outcome of polling for tender processing after acceptance.
type Confirmation string

const (
	ConfirmationNone      Confirmation = ""
	ConfirmationConfirmed Confirmation = "confirmed"
	ConfirmationTimedOut  Confirmation = "timed_out"
	ConfirmationError     Confirmation = "error"
)

// TenderDecision records what the session controller did with one tender.
type TenderDecision struct {
	TenderID      int64
	Ticker        string
	Action        Action
	Quantity      int64
	Price         float64
	ReferenceVWAP float64
	Accepted      bool
	Reason        string
	Net           int64
	Gross         int64
	Confirmation  Confirmation
	Tick          int
	DecidedAt     time.Time
}

package models

import "time"

type Operation string
type PositionSide string
type MarginMode string

const (
	OperationOpenLong   Operation = "open_long"
	OperationOpenShort  Operation = "open_short"
	OperationCloseLong  Operation = "close_long"
	OperationCloseShort Operation = "close_short"
	OperationHold       Operation = "hold"

	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"

	MarginModeCross    MarginMode = "cross"
	MarginModeIsolated MarginMode = "isolated"
)

// IsOpen reports whether the operation opens a new position.
func (op Operation) IsOpen() bool {
	return op == OperationOpenLong || op == OperationOpenShort
}

// IsClose reports whether the operation closes an existing position.
func (op Operation) IsClose() bool {
	return op == OperationCloseLong || op == OperationCloseShort
}

// Side returns the position side the operation acts on.
// Hold has no side and returns "".
func (op Operation) Side() PositionSide {
	switch op {
	case OperationOpenLong, OperationCloseLong:
		return SideLong
	case OperationOpenShort, OperationCloseShort:
		return SideShort
	}
	return ""
}

// Decision is the untrusted per-account, per-tick trading intent
// returned by the decision source. It is never mutated after creation
// and is always persisted whether executed or rejected.
type Decision struct {
	Operation     Operation `json:"operation"`
	Symbol        string    `json:"symbol"`
	TargetPortion float64   `json:"target_portion_of_balance"`
	Leverage      int       `json:"leverage"`
	Reason        string    `json:"reason"`
}

// Position is exchange-reported state, read-only to the engine. A
// dual-side book can hold one long and one short per instrument at the
// same time; the two must never be conflated.
type Position struct {
	Symbol     string
	Side       PositionSide
	Contracts  float64
	EntryPrice float64
	Notional   float64
	Leverage   int
	MarginMode MarginMode
}

// Active reports whether the position actually exists on the book.
// Exchanges keep returning zero-contract entries after a close.
func (p Position) Active() bool {
	return p.Contracts > 0
}

// Account is one trading account: a decision-source endpoint plus an
// exchange credential set.
type Account struct {
	ID         int64
	Name       string
	Model      string
	BaseURL    string
	APIKey     string
	OKXAPIKey  string
	OKXSecret  string
	Passphrase string
	Sandbox    bool
	Active     bool
}

// ExecutionRecord is one append-only ledger row per processed decision,
// including rejections. It is the only post-hoc answer to "why did this
// tick produce no trade".
type ExecutionRecord struct {
	ID            string
	AccountID     int64
	Operation     Operation
	Symbol        string
	TargetPortion float64
	Leverage      int
	Executed      bool
	OrderID       string
	Reason        string
	TotalBalance  float64
	CreatedAt     time.Time
}

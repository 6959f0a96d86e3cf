package exchange

import (
	"context"
	"strings"

	"aitrader/internal/models"
)

// Balance is the account-level USDT picture reported by the exchange.
type Balance struct {
	Free        float64
	Used        float64
	Total       float64
	TotalEquity float64
}

// Instrument carries the sizing constraints of one contract.
// AmountPrecision >= 1 is a decimal-place count; < 1 means the
// instrument trades in whole contracts only.
type Instrument struct {
	InstID          string
	AmountPrecision float64
	MinAmount       float64
}

// OrderRequest is a market order against the dual-side swap book.
type OrderRequest struct {
	InstID     string
	Side       string // "buy" or "sell"
	PosSide    models.PositionSide
	Quantity   float64
	QtyStep    float64
	ReduceOnly bool
	ClientID   string
	MarginMode models.MarginMode
}

// OrderResult is the exchange's acknowledgement of a submitted order.
type OrderResult struct {
	OrderID  string
	ClientID string
}

// Client is the per-account exchange capability. Implementations carry
// their own credential set; nothing here is ambient global state.
type Client interface {
	GetBalance(ctx context.Context) (Balance, error)
	GetPositions(ctx context.Context, instID string) ([]models.Position, error)
	SetLeverage(ctx context.Context, instID string, leverage int, marginMode models.MarginMode) error
	CreateOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	GetInstrument(ctx context.Context, instID string) (Instrument, error)
	GetLastPrice(ctx context.Context, instID string) (float64, error)
}

// Factory builds a Client from one account's credential set.
type Factory func(account models.Account) Client

// IsRateLimited reports whether an exchange or decision-source error is
// a rate-limit response worth backing off and retrying.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "50011") ||
		strings.Contains(msg, "Too Many Requests")
}

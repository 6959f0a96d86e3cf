package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"aitrader/internal/exchange"
	"aitrader/internal/models"
)

// SizingContext is the ephemeral market state one opening decision is
// sized against. Derived per decision, never persisted or cached.
type SizingContext struct {
	AvailableBalance float64
	CurrentPrice     float64
	AmountPrecision  float64
	MinAmount        float64
}

func NewSizingContext(balance exchange.Balance, price float64, inst exchange.Instrument) SizingContext {
	return SizingContext{
		AvailableBalance: balance.Free,
		CurrentPrice:     price,
		AmountPrecision:  inst.AmountPrecision,
		MinAmount:        inst.MinAmount,
	}
}

// SizeOpen computes the order quantity for an opening operation:
//
//	quantity = (availableBalance * portion * leverage) / price
//
// truncated to the instrument's amount precision. A result under the
// exchange minimum is raised to the minimum, unless even the minimum
// would need more margin than the account has, which is a rejection.
func SizeOpen(sc SizingContext, portion float64, leverage int) (float64, Outcome, bool) {
	if sc.CurrentPrice <= 0 {
		return 0, rejected(ReasonNoPrice, "no current price"), false
	}

	balance := decimal.NewFromFloat(sc.AvailableBalance)
	price := decimal.NewFromFloat(sc.CurrentPrice)
	lever := decimal.NewFromInt(int64(leverage))

	orderValue := balance.Mul(decimal.NewFromFloat(portion)).Mul(lever)
	raw := orderValue.Div(price)

	qty := truncateAmount(raw, sc.AmountPrecision)

	if qty.LessThan(decimal.NewFromFloat(sc.MinAmount)) {
		minAmount := decimal.NewFromFloat(sc.MinAmount)
		// The minimum tradable size still needs margin the account may
		// not have; silently over-leveraging is never acceptable.
		if minAmount.Mul(price).GreaterThan(balance.Mul(lever)) {
			return 0, rejected(ReasonInsufficientCapital,
				fmt.Sprintf("min amount %v exceeds %vx buying power", sc.MinAmount, leverage)), false
		}
		qty = minAmount
	}

	result, _ := qty.Float64()
	if result <= 0 {
		return 0, rejected(ReasonZeroQuantity, "computed open quantity is zero"), false
	}
	return result, Outcome{}, true
}

// SizeClose computes the close quantity as a fraction of the resolved
// position, never of capital: max(1 contract, floor(contracts*portion)),
// capped at the position size. Portion 1.0 closes the whole position.
func SizeClose(pos models.Position, portion float64) (float64, Outcome, bool) {
	if pos.Contracts <= 0 {
		return 0, rejected(ReasonZeroQuantity, "position has no contracts"), false
	}

	qty := math.Floor(pos.Contracts * portion)
	if qty < 1 {
		qty = 1
	}
	if qty > pos.Contracts {
		qty = pos.Contracts
	}
	if qty <= 0 {
		return 0, rejected(ReasonZeroQuantity, "computed close quantity is zero"), false
	}
	return qty, Outcome{}, true
}

// truncateAmount rounds a raw quantity down to the instrument's
// precision. Precision below one means the instrument trades in whole
// contracts only.
func truncateAmount(raw decimal.Decimal, precision float64) decimal.Decimal {
	if precision < 1 {
		return raw.Floor()
	}
	return raw.Truncate(int32(precision))
}

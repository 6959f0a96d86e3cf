package engine

import (
	"fmt"

	"aitrader/internal/models"
)

var operations = map[models.Operation]bool{
	models.OperationOpenLong:   true,
	models.OperationOpenShort:  true,
	models.OperationCloseLong:  true,
	models.OperationCloseShort: true,
	models.OperationHold:       true,
}

// Validate checks an untrusted decision against the operation, symbol
// and portion contract. It returns a zero Outcome when the decision is
// acceptable. Leverage is deliberately not validated here: it is a risk
// dial and gets clamped, never rejected.
func Validate(d *models.Decision, symbols map[string]bool) (Outcome, bool) {
	if !operations[d.Operation] {
		return rejected(ReasonUnknownOperation, fmt.Sprintf("operation %q", d.Operation)), false
	}
	if d.Operation == models.OperationHold {
		return Outcome{}, true
	}
	if !symbols[d.Symbol] {
		return rejected(ReasonUnsupportedSymbol, fmt.Sprintf("symbol %q", d.Symbol)), false
	}
	if d.TargetPortion <= 0 || d.TargetPortion > 1 {
		return rejected(ReasonPortionOutOfRange, fmt.Sprintf("portion %v", d.TargetPortion)), false
	}
	return Outcome{}, true
}

// ClampLeverage forces leverage into [1, max].
func ClampLeverage(leverage, max int) int {
	if max <= 0 {
		max = 50
	}
	if leverage < 1 {
		return 1
	}
	if leverage > max {
		return max
	}
	return leverage
}

// SymbolSet builds the supported-symbol lookup from configuration.
func SymbolSet(symbols []string) map[string]bool {
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}

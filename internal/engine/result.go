package engine

// Reason classifies why a decision produced no trade. Expected, common
// outcomes are values here, not errors; only the account boundary deals
// in panics.
type Reason string

const (
	ReasonUnknownOperation      Reason = "unknown_operation"
	ReasonUnsupportedSymbol     Reason = "unsupported_symbol"
	ReasonPortionOutOfRange     Reason = "portion_out_of_range"
	ReasonPositionNotFound      Reason = "position_not_found"
	ReasonPositionAlreadyClosed Reason = "position_already_closed"
	ReasonZeroQuantity          Reason = "zero_quantity"
	ReasonInsufficientCapital   Reason = "insufficient_capital"
	ReasonNoPrice               Reason = "no_price"
	ReasonOrderFailed           Reason = "order_failed"
)

// Outcome is the terminal state of one decision pipeline.
type Outcome struct {
	Executed bool
	OrderID  string
	Reason   Reason
	Detail   string
}

func executed(orderID string) Outcome {
	return Outcome{Executed: true, OrderID: orderID}
}

func held() Outcome {
	return Outcome{Executed: true}
}

func rejected(reason Reason, detail string) Outcome {
	return Outcome{Reason: reason, Detail: detail}
}

package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"aitrader/internal/backoff"
	"aitrader/internal/exchange"
	"aitrader/internal/logger"
	"aitrader/internal/models"
)

// SubmitRequest describes one exchange-ready order.
type SubmitRequest struct {
	InstID     string
	Operation  models.Operation
	Quantity   float64
	QtyStep    float64
	MarginMode models.MarginMode
}

// Submitter wraps the exchange order call with the pre-submission
// close re-verification and the transient-failure retry policy.
type Submitter struct {
	client exchange.Client
	retry  backoff.Policy
	log    *logger.Logger
	dryRun bool
}

func NewSubmitter(client exchange.Client, retry backoff.Policy, log *logger.Logger, dryRun bool) *Submitter {
	return &Submitter{
		client: client,
		retry:  retry,
		log:    log,
		dryRun: dryRun,
	}
}

// Submit places the order. For closing operations it first re-fetches
// the live position for the exact instrument and side: the position can
// vanish between resolution and submission (closed by a previous tick
// or externally), and submitting anyway would risk a double close.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (exchange.OrderResult, Outcome, bool) {
	if req.Operation.IsClose() {
		positions, err := s.client.GetPositions(ctx, req.InstID)
		if err != nil {
			return exchange.OrderResult{}, rejected(ReasonOrderFailed, "position re-check failed: "+err.Error()), false
		}
		if _, ok := Resolve(positions, req.InstID, req.Operation.Side()); !ok {
			return exchange.OrderResult{}, rejected(ReasonPositionAlreadyClosed, "no live position at submission"), false
		}
	}

	order := exchange.OrderRequest{
		InstID:     req.InstID,
		Side:       orderSide(req.Operation),
		PosSide:    req.Operation.Side(),
		Quantity:   req.Quantity,
		QtyStep:    req.QtyStep,
		ReduceOnly: req.Operation.IsClose(),
		ClientID:   newClientOrderID(),
		MarginMode: req.MarginMode,
	}

	if s.dryRun {
		s.log.WithSymbol(req.InstID).WithFields(map[string]interface{}{
			"side":        order.Side,
			"pos_side":    order.PosSide,
			"qty":         order.Quantity,
			"reduce_only": order.ReduceOnly,
		}).Info("dry run, order not sent")
		return exchange.OrderResult{OrderID: "dry-" + order.ClientID}, executed("dry-" + order.ClientID), true
	}

	var lastErr error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		result, err := s.client.CreateOrder(ctx, order)
		if err == nil {
			return result, executed(result.OrderID), true
		}
		lastErr = err
		if !exchange.IsRateLimited(err) {
			// A failed order may still have partially filled; retrying a
			// non-rate-limit failure risks a duplicate submission.
			break
		}
		if attempt < s.retry.MaxAttempts-1 {
			s.log.WithSymbol(req.InstID).WithError(err).Warn("order rate limited, backing off")
			if werr := s.retry.Wait(ctx, attempt); werr != nil {
				lastErr = werr
				break
			}
		}
	}

	return exchange.OrderResult{}, rejected(ReasonOrderFailed, lastErr.Error()), false
}

// orderSide maps an operation to the exchange order side on a
// dual-side book: closing a long sells, closing a short buys back.
func orderSide(op models.Operation) string {
	switch op {
	case models.OperationOpenLong, models.OperationCloseShort:
		return "buy"
	default:
		return "sell"
	}
}

func newClientOrderID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ai" + raw[:24]
}

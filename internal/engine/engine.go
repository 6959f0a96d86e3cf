package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"aitrader/internal/backoff"
	"aitrader/internal/config"
	"aitrader/internal/decision"
	"aitrader/internal/exchange"
	"aitrader/internal/logger"
	"aitrader/internal/metrics"
	"aitrader/internal/models"
)

// Source produces at most one decision per account per tick.
type Source interface {
	GetDecision(ctx context.Context, account models.Account, portfolio decision.Portfolio, prices map[string]float64) (*models.Decision, error)
}

// Ledger is the append-only execution record sink.
type Ledger interface {
	Record(ctx context.Context, record models.ExecutionRecord) error
}

// Notifier is the optional fire-and-forget observer channel.
type Notifier interface {
	Notify(accountID int64)
}

type Engine struct {
	cfg      *config.Config
	factory  exchange.Factory
	source   Source
	ledger   Ledger
	notifier Notifier
	log      *logger.Logger

	symbols map[string]bool
	retry   backoff.Policy
}

func New(cfg *config.Config, factory exchange.Factory, source Source, ledger Ledger, notifier Notifier, log *logger.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		factory:  factory,
		source:   source,
		ledger:   ledger,
		notifier: notifier,
		log:      log,
		symbols:  SymbolSet(cfg.Trading.Symbols),
		retry:    backoff.Default(),
	}
}

// RunTick processes every account once. Accounts are fanned out over a
// bounded worker pool; within one account the pipeline stays strictly
// ordered. When the tick window expires, in-flight pipelines finish but
// no new ones start.
func (e *Engine) RunTick(ctx context.Context, accounts []models.Account) {
	if len(accounts) == 0 {
		e.log.WithComponent("engine").Debug("no active accounts, skipping tick")
		return
	}

	startGate, cancel := context.WithTimeout(ctx, e.cfg.Trading.TickWindow)
	defer cancel()

	workers := e.cfg.Trading.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(accounts) {
		workers = len(accounts)
	}

	jobs := make(chan models.Account, len(accounts))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for account := range jobs {
				if startGate.Err() != nil {
					e.log.WithAccount(account.ID).Warn("tick window exceeded, account skipped this tick")
					continue
				}
				e.processAccount(ctx, account)
			}
		}()
	}
	for _, account := range accounts {
		jobs <- account
	}
	close(jobs)
	wg.Wait()
}

// processAccount is the account boundary: any panic below is caught
// here so one account can never poison the rest of the tick.
func (e *Engine) processAccount(ctx context.Context, account models.Account) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithAccount(account.ID).WithFields(map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			}).Error("account pipeline panicked")
		}
	}()

	if decision.IsPlaceholderKey(account.APIKey) {
		e.log.WithAccount(account.ID).Debug("placeholder decision key, account skipped")
		return
	}

	client := e.factory(account)

	balance, err := client.GetBalance(ctx)
	if err != nil {
		e.log.WithAccount(account.ID).WithError(err).Error("balance fetch failed")
		return
	}
	positions, err := client.GetPositions(ctx, "")
	if err != nil {
		e.log.WithAccount(account.ID).WithError(err).Error("positions fetch failed")
		return
	}
	prices := e.fetchPrices(ctx, client)
	if len(prices) == 0 {
		e.log.WithAccount(account.ID).Warn("no market prices, account skipped")
		return
	}

	portfolio := e.buildPortfolio(balance, positions)
	if portfolio.TotalAssets <= 0 {
		e.log.WithAccount(account.ID).Debug("non-positive total assets, account skipped")
		return
	}
	metrics.SetEquity(account.Name, portfolio.TotalAssets)

	d, err := e.source.GetDecision(ctx, account, portfolio, prices)
	if err != nil {
		e.log.WithAccount(account.ID).WithError(err).Error("decision source failed")
		return
	}
	if d == nil {
		d = &models.Decision{Operation: models.OperationHold, Reason: "decision source returned nothing"}
	}

	outcome := e.execute(ctx, client, account, d)
	e.record(ctx, account, d, portfolio.TotalAssets, outcome)

	metrics.IncDecision(string(d.Operation))
	if outcome.Executed {
		if outcome.OrderID != "" {
			metrics.IncOrder("executed")
			e.notifier.Notify(account.ID)
		}
	} else {
		metrics.IncRejection(string(outcome.Reason))
	}
}

// execute drives one decision through validate, leverage, resolve,
// size and submit. Every return is a terminal state; the caller writes
// exactly one ledger entry from it.
func (e *Engine) execute(ctx context.Context, client exchange.Client, account models.Account, d *models.Decision) Outcome {
	if out, ok := Validate(d, e.symbols); !ok {
		e.log.WithAccount(account.ID).WithFields(map[string]interface{}{
			"reason": out.Reason,
			"detail": out.Detail,
		}).Warn("decision rejected")
		return out
	}

	if d.Operation == models.OperationHold {
		e.log.WithAccount(account.ID).Info("decision is hold")
		return held()
	}

	instID := e.instrumentID(d.Symbol)
	leverage := ClampLeverage(d.Leverage, e.cfg.Trading.MaxLeverage)
	marginMode := models.MarginMode(e.cfg.Trading.MarginMode)
	submitter := NewSubmitter(client, e.retry, e.log, e.cfg.Runtime.DryRun)

	if d.Operation.IsOpen() {
		return e.executeOpen(ctx, client, submitter, account, d, instID, leverage, marginMode)
	}
	return e.executeClose(ctx, client, submitter, account, d, instID, marginMode)
}

func (e *Engine) executeOpen(ctx context.Context, client exchange.Client, submitter *Submitter, account models.Account, d *models.Decision, instID string, leverage int, marginMode models.MarginMode) Outcome {
	// Leverage-set failures are non-fatal: the exchange may already be
	// at the requested setting from an earlier call.
	if err := client.SetLeverage(ctx, instID, leverage, marginMode); err != nil {
		e.log.WithAccount(account.ID).WithField("symbol", instID).WithError(err).Warn("leverage set failed, proceeding")
	}

	price, err := client.GetLastPrice(ctx, instID)
	if err != nil {
		return rejected(ReasonNoPrice, err.Error())
	}
	inst, err := client.GetInstrument(ctx, instID)
	if err != nil {
		return rejected(ReasonOrderFailed, "instrument fetch failed: "+err.Error())
	}
	// Fresh balance right before sizing; the snapshot taken for the
	// decision prompt is already stale.
	balance, err := client.GetBalance(ctx)
	if err != nil {
		return rejected(ReasonOrderFailed, "balance fetch failed: "+err.Error())
	}

	qty, out, ok := SizeOpen(NewSizingContext(balance, price, inst), d.TargetPortion, leverage)
	if !ok {
		return out
	}

	e.log.WithAccount(account.ID).WithFields(map[string]interface{}{
		"symbol":    instID,
		"operation": d.Operation,
		"qty":       qty,
		"price":     price,
		"leverage":  leverage,
	}).Info("submitting opening order")

	result, out, ok := submitter.Submit(ctx, SubmitRequest{
		InstID:     instID,
		Operation:  d.Operation,
		Quantity:   qty,
		QtyStep:    lotStep(inst.AmountPrecision),
		MarginMode: marginMode,
	})
	if ok {
		e.log.WithAccount(account.ID).WithField("order_id", result.OrderID).Info("opening order executed")
	}
	return out
}

func (e *Engine) executeClose(ctx context.Context, client exchange.Client, submitter *Submitter, account models.Account, d *models.Decision, instID string, marginMode models.MarginMode) Outcome {
	positions, err := client.GetPositions(ctx, instID)
	if err != nil {
		return rejected(ReasonOrderFailed, "positions fetch failed: "+err.Error())
	}

	pos, found := Resolve(positions, instID, d.Operation.Side())
	if !found {
		e.log.WithAccount(account.ID).WithField("symbol", instID).Info("no live position to close")
		return rejected(ReasonPositionNotFound, fmt.Sprintf("no active %s position", d.Operation.Side()))
	}

	qty, out, ok := SizeClose(pos, d.TargetPortion)
	if !ok {
		return out
	}

	e.log.WithAccount(account.ID).WithFields(map[string]interface{}{
		"symbol":    instID,
		"operation": d.Operation,
		"qty":       qty,
		"contracts": pos.Contracts,
	}).Info("submitting closing order")

	result, out, ok := submitter.Submit(ctx, SubmitRequest{
		InstID:     instID,
		Operation:  d.Operation,
		Quantity:   qty,
		MarginMode: marginMode,
	})
	if ok {
		e.log.WithAccount(account.ID).WithField("order_id", result.OrderID).Info("closing order executed")
	}
	return out
}

// record writes the single ledger entry every processed decision gets.
// A store failure is logged, never propagated: the trade already
// happened or already didn't.
func (e *Engine) record(ctx context.Context, account models.Account, d *models.Decision, totalBalance float64, out Outcome) {
	reason := d.Reason
	if !out.Executed {
		reason = fmt.Sprintf("[%s] %s", out.Reason, out.Detail)
	}

	rec := models.ExecutionRecord{
		ID:            uuid.New().String(),
		AccountID:     account.ID,
		Operation:     d.Operation,
		Symbol:        d.Symbol,
		TargetPortion: d.TargetPortion,
		Leverage:      d.Leverage,
		Executed:      out.Executed,
		OrderID:       out.OrderID,
		Reason:        reason,
		TotalBalance:  totalBalance,
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.ledger.Record(ctx, rec); err != nil {
		e.log.WithAccount(account.ID).WithError(err).Error("execution record write failed")
	}
}

func (e *Engine) fetchPrices(ctx context.Context, client exchange.Client) map[string]float64 {
	prices := make(map[string]float64, len(e.cfg.Trading.Symbols))
	for _, symbol := range e.cfg.Trading.Symbols {
		price, err := client.GetLastPrice(ctx, e.instrumentID(symbol))
		if err != nil {
			e.log.WithSymbol(symbol).WithError(err).Warn("price fetch failed")
			continue
		}
		if price > 0 {
			prices[symbol] = price
		}
	}
	return prices
}

func (e *Engine) buildPortfolio(balance exchange.Balance, positions []models.Position) decision.Portfolio {
	portfolio := decision.Portfolio{
		Cash:        balance.Free,
		FrozenCash:  balance.Used,
		TotalAssets: balance.TotalEquity,
		Positions:   map[string]decision.PortfolioPosition{},
	}
	if portfolio.TotalAssets == 0 {
		portfolio.TotalAssets = balance.Total
	}

	for _, pos := range positions {
		if !pos.Active() {
			continue
		}
		symbol := baseSymbol(pos.Symbol)
		portfolio.Positions[symbol] = decision.PortfolioPosition{
			Quantity:     pos.Contracts,
			AvgCost:      pos.EntryPrice,
			CurrentValue: pos.Notional,
			Leverage:     pos.Leverage,
			MarginMode:   string(pos.MarginMode),
			Side:         string(pos.Side),
		}
	}
	return portfolio
}

func (e *Engine) instrumentID(symbol string) string {
	return symbol + "-" + e.cfg.Trading.QuoteCoin + "-SWAP"
}

func baseSymbol(instID string) string {
	if idx := strings.IndexByte(instID, '-'); idx > 0 {
		return instID[:idx]
	}
	return instID
}

// lotStep converts an amount precision back to the quantization step
// the exchange formatter expects.
func lotStep(precision float64) float64 {
	if precision < 1 {
		return 1
	}
	step := 1.0
	for i := 0; i < int(precision); i++ {
		step /= 10
	}
	return step
}

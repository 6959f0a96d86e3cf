package engine

import (
	"context"
	"fmt"
	"sync"

	"aitrader/internal/exchange"
	"aitrader/internal/models"
)

// fakeClient scripts exchange behavior for pipeline tests and counts
// every call that could move money.
type fakeClient struct {
	mu sync.Mutex

	balance   exchange.Balance
	positions []models.Position
	prices    map[string]float64
	inst      exchange.Instrument

	balanceErr  error
	positionErr error
	leverageErr error

	// orderErrs is consumed per CreateOrder call; nil means success.
	orderErrs   []error
	orderCalls  []exchange.OrderRequest
	leverageLog []int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		balance: exchange.Balance{Free: 1000, Total: 1000, TotalEquity: 1000},
		prices:  map[string]float64{},
		inst:    exchange.Instrument{AmountPrecision: 3, MinAmount: 0.001},
	}
}

func (f *fakeClient) GetBalance(ctx context.Context) (exchange.Balance, error) {
	if f.balanceErr != nil {
		return exchange.Balance{}, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeClient) GetPositions(ctx context.Context, instID string) ([]models.Position, error) {
	if f.positionErr != nil {
		return nil, f.positionErr
	}
	if instID == "" {
		return f.positions, nil
	}
	var out []models.Position
	for _, pos := range f.positions {
		if pos.Symbol == instID {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (f *fakeClient) SetLeverage(ctx context.Context, instID string, leverage int, marginMode models.MarginMode) error {
	f.mu.Lock()
	f.leverageLog = append(f.leverageLog, leverage)
	f.mu.Unlock()
	return f.leverageErr
}

func (f *fakeClient) CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	f.mu.Lock()
	f.orderCalls = append(f.orderCalls, req)
	n := len(f.orderCalls)
	var err error
	if len(f.orderErrs) > 0 {
		err = f.orderErrs[0]
		f.orderErrs = f.orderErrs[1:]
	}
	f.mu.Unlock()

	if err != nil {
		return exchange.OrderResult{}, err
	}
	return exchange.OrderResult{OrderID: fmt.Sprintf("order-%d", n)}, nil
}

func (f *fakeClient) GetInstrument(ctx context.Context, instID string) (exchange.Instrument, error) {
	return f.inst, nil
}

func (f *fakeClient) GetLastPrice(ctx context.Context, instID string) (float64, error) {
	price, ok := f.prices[instID]
	if !ok {
		return 0, fmt.Errorf("no price for %s", instID)
	}
	return price, nil
}

func (f *fakeClient) orders() []exchange.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]exchange.OrderRequest(nil), f.orderCalls...)
}

// fakeLedger collects records in memory.
type fakeLedger struct {
	mu      sync.Mutex
	records []models.ExecutionRecord
	err     error
}

func (f *fakeLedger) Record(ctx context.Context, rec models.ExecutionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeLedger) all() []models.ExecutionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ExecutionRecord(nil), f.records...)
}

type fakeNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (f *fakeNotifier) Notify(accountID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, accountID)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"aitrader/internal/backoff"
	"aitrader/internal/logger"
	"aitrader/internal/models"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "fatal"})
}

func testRetry(sleeps *int) backoff.Policy {
	return backoff.Policy{
		MaxAttempts: 3,
		Base:        time.Second,
		Jitter:      func() float64 { return 0 },
		Sleep: func(ctx context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps++
			}
			return nil
		},
	}
}

func TestSubmitOpenSetsDirectionalFields(t *testing.T) {
	tests := []struct {
		op       models.Operation
		side     string
		posSide  models.PositionSide
		reduce   bool
		existing []models.Position
	}{
		{op: models.OperationOpenLong, side: "buy", posSide: models.SideLong},
		{op: models.OperationOpenShort, side: "sell", posSide: models.SideShort},
		{
			op: models.OperationCloseLong, side: "sell", posSide: models.SideLong, reduce: true,
			existing: []models.Position{{Symbol: "BTC-USDT-SWAP", Side: models.SideLong, Contracts: 3}},
		},
		{
			op: models.OperationCloseShort, side: "buy", posSide: models.SideShort, reduce: true,
			existing: []models.Position{{Symbol: "BTC-USDT-SWAP", Side: models.SideShort, Contracts: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			client := newFakeClient()
			client.positions = tt.existing
			s := NewSubmitter(client, testRetry(nil), testLogger(), false)

			result, out, ok := s.Submit(context.Background(), SubmitRequest{
				InstID:     "BTC-USDT-SWAP",
				Operation:  tt.op,
				Quantity:   1,
				MarginMode: models.MarginModeCross,
			})
			if !ok {
				t.Fatalf("Submit() rejected: %+v", out)
			}
			if result.OrderID == "" {
				t.Error("Submit() returned empty order id")
			}

			orders := client.orders()
			if len(orders) != 1 {
				t.Fatalf("CreateOrder called %d times, want 1", len(orders))
			}
			order := orders[0]
			if order.Side != tt.side {
				t.Errorf("order side = %q, want %q", order.Side, tt.side)
			}
			if order.PosSide != tt.posSide {
				t.Errorf("order posSide = %q, want %q", order.PosSide, tt.posSide)
			}
			if order.ReduceOnly != tt.reduce {
				t.Errorf("order reduceOnly = %v, want %v", order.ReduceOnly, tt.reduce)
			}
			if !strings.HasPrefix(order.ClientID, "ai") {
				t.Errorf("client order id %q missing prefix", order.ClientID)
			}
		})
	}
}

func TestSubmitCloseVanishedPosition(t *testing.T) {
	client := newFakeClient()
	client.positions = nil // closed between resolve and submit
	s := NewSubmitter(client, testRetry(nil), testLogger(), false)

	_, out, ok := s.Submit(context.Background(), SubmitRequest{
		InstID:     "BTC-USDT-SWAP",
		Operation:  models.OperationCloseLong,
		Quantity:   1,
		MarginMode: models.MarginModeCross,
	})
	if ok {
		t.Fatal("Submit() must not place a close order without a live position")
	}
	if out.Reason != ReasonPositionAlreadyClosed {
		t.Errorf("reason = %q, want %q", out.Reason, ReasonPositionAlreadyClosed)
	}
	if len(client.orders()) != 0 {
		t.Errorf("CreateOrder called %d times, want 0", len(client.orders()))
	}
}

func TestSubmitRetriesRateLimit(t *testing.T) {
	rateLimited := errors.New("okx request failed with status 429")

	t.Run("succeeds on third attempt", func(t *testing.T) {
		client := newFakeClient()
		client.orderErrs = []error{rateLimited, rateLimited, nil}
		sleeps := 0
		s := NewSubmitter(client, testRetry(&sleeps), testLogger(), false)

		result, out, ok := s.Submit(context.Background(), SubmitRequest{
			InstID:     "BTC-USDT-SWAP",
			Operation:  models.OperationOpenLong,
			Quantity:   1,
			MarginMode: models.MarginModeCross,
		})
		if !ok {
			t.Fatalf("Submit() rejected after transient rate limits: %+v", out)
		}
		if result.OrderID == "" {
			t.Error("Submit() returned empty order id")
		}
		if got := len(client.orders()); got != 3 {
			t.Errorf("CreateOrder called %d times, want 3", got)
		}
		if sleeps != 2 {
			t.Errorf("slept %d times, want 2", sleeps)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		client := newFakeClient()
		client.orderErrs = []error{rateLimited, rateLimited, rateLimited, rateLimited}
		sleeps := 0
		s := NewSubmitter(client, testRetry(&sleeps), testLogger(), false)

		_, out, ok := s.Submit(context.Background(), SubmitRequest{
			InstID:     "BTC-USDT-SWAP",
			Operation:  models.OperationOpenLong,
			Quantity:   1,
			MarginMode: models.MarginModeCross,
		})
		if ok {
			t.Fatal("Submit() succeeded past the attempt budget")
		}
		if out.Reason != ReasonOrderFailed {
			t.Errorf("reason = %q, want %q", out.Reason, ReasonOrderFailed)
		}
		if got := len(client.orders()); got != 3 {
			t.Errorf("CreateOrder called %d times, want 3", got)
		}
	})

	t.Run("non rate limit error is final", func(t *testing.T) {
		client := newFakeClient()
		client.orderErrs = []error{errors.New("okx error 51008: insufficient balance")}
		sleeps := 0
		s := NewSubmitter(client, testRetry(&sleeps), testLogger(), false)

		_, out, ok := s.Submit(context.Background(), SubmitRequest{
			InstID:     "BTC-USDT-SWAP",
			Operation:  models.OperationOpenLong,
			Quantity:   1,
			MarginMode: models.MarginModeCross,
		})
		if ok {
			t.Fatal("Submit() succeeded on a hard failure")
		}
		if out.Reason != ReasonOrderFailed {
			t.Errorf("reason = %q, want %q", out.Reason, ReasonOrderFailed)
		}
		if got := len(client.orders()); got != 1 {
			t.Errorf("CreateOrder called %d times, want 1", got)
		}
		if sleeps != 0 {
			t.Errorf("slept %d times, want 0", sleeps)
		}
	})
}

func TestSubmitDryRun(t *testing.T) {
	client := newFakeClient()
	s := NewSubmitter(client, testRetry(nil), testLogger(), true)

	result, _, ok := s.Submit(context.Background(), SubmitRequest{
		InstID:     "BTC-USDT-SWAP",
		Operation:  models.OperationOpenLong,
		Quantity:   1,
		MarginMode: models.MarginModeCross,
	})
	if !ok {
		t.Fatal("dry run must report execution")
	}
	if !strings.HasPrefix(result.OrderID, "dry-") {
		t.Errorf("dry run order id = %q, want dry- prefix", result.OrderID)
	}
	if len(client.orders()) != 0 {
		t.Error("dry run must not reach the exchange")
	}
}

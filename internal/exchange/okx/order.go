package okx

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"aitrader/internal/exchange"
)

type orderData struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

func (c *Client) CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	body := map[string]any{
		"instId":  req.InstID,
		"tdMode":  string(req.MarginMode),
		"side":    req.Side,
		"posSide": string(req.PosSide),
		"ordType": "market",
		"sz":      formatSize(req.Quantity, req.QtyStep),
	}
	if req.ReduceOnly {
		body["reduceOnly"] = true
	}
	if req.ClientID != "" {
		body["clOrdId"] = req.ClientID
	}

	var resp okxResponse[orderData]
	if err := c.doRequest(ctx, http.MethodPost, "/api/v5/trade/order", nil, body, true, &resp); err != nil {
		return exchange.OrderResult{}, err
	}
	if len(resp.Data) == 0 {
		return exchange.OrderResult{}, fmt.Errorf("empty order response")
	}

	// Trade endpoints ack with code 0 and report per-order failures in sCode.
	item := resp.Data[0]
	if item.SCode != "" && item.SCode != "0" {
		return exchange.OrderResult{}, fmt.Errorf("okx order rejected: %s (code=%s)", item.SMsg, item.SCode)
	}

	return exchange.OrderResult{
		OrderID:  item.OrdID,
		ClientID: item.ClOrdID,
	}, nil
}

// formatSize quantizes qty down to a multiple of step and renders it
// without float artifacts. Step 0 passes the quantity through.
func formatSize(qty, step float64) string {
	q := decimal.NewFromFloat(qty)
	if step > 0 {
		s := decimal.NewFromFloat(step)
		q = q.Div(s).Floor().Mul(s)
	}
	return q.String()
}

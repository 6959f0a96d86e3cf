package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"aitrader/internal/exchange"
)

type instrumentData struct {
	InstID string `json:"instId"`
	LotSz  string `json:"lotSz"`
	MinSz  string `json:"minSz"`
}

func (c *Client) GetInstrument(ctx context.Context, instID string) (exchange.Instrument, error) {
	params := url.Values{}
	params.Set("instType", "SWAP")
	params.Set("instId", instID)

	var resp okxResponse[instrumentData]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v5/public/instruments", params, nil, false, &resp); err != nil {
		return exchange.Instrument{}, err
	}
	if len(resp.Data) == 0 {
		return exchange.Instrument{}, fmt.Errorf("instrument not found: %s", instID)
	}

	info := resp.Data[0]
	minSz, _ := parseFloatOrZero(info.MinSz)

	return exchange.Instrument{
		InstID:          instID,
		AmountPrecision: precisionFromLotSize(info.LotSz),
		MinAmount:       minSz,
	}, nil
}

func (c *Client) GetLastPrice(ctx context.Context, instID string) (float64, error) {
	params := url.Values{}
	params.Set("instId", instID)

	var resp okxResponse[struct {
		Last string `json:"last"`
	}]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v5/market/ticker", params, nil, false, &resp); err != nil {
		return 0, err
	}
	if len(resp.Data) == 0 {
		return 0, fmt.Errorf("no ticker for %s", instID)
	}

	price, err := strconv.ParseFloat(resp.Data[0].Last, 64)
	if err != nil {
		return 0, fmt.Errorf("bad last price %q: %w", resp.Data[0].Last, err)
	}
	return price, nil
}

// precisionFromLotSize turns the exchange lot size into a decimal-place
// count. A lot size of 1 or more means whole contracts only, reported
// as precision 0.
func precisionFromLotSize(lotSz string) float64 {
	text := strings.TrimSpace(lotSz)
	if text == "" {
		return 0
	}
	if dot := strings.IndexByte(text, '.'); dot >= 0 {
		return float64(len(strings.TrimRight(text[dot+1:], "0")))
	}
	return 0
}

package okx

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"aitrader/internal/exchange"
	"aitrader/internal/models"
)

type balanceDetail struct {
	Ccy       string `json:"ccy"`
	AvailBal  string `json:"availBal"`
	FrozenBal string `json:"frozenBal"`
	Eq        string `json:"eq"`
}

type balanceData struct {
	TotalEq string          `json:"totalEq"`
	Details []balanceDetail `json:"details"`
}

func (c *Client) GetBalance(ctx context.Context) (exchange.Balance, error) {
	params := url.Values{}
	params.Set("ccy", "USDT")

	var resp okxResponse[balanceData]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v5/account/balance", params, nil, true, &resp); err != nil {
		return exchange.Balance{}, err
	}

	balance := exchange.Balance{}
	for _, account := range resp.Data {
		balance.TotalEquity, _ = parseFloatOrZero(account.TotalEq)
		for _, detail := range account.Details {
			if detail.Ccy != "USDT" {
				continue
			}
			balance.Free, _ = parseFloatOrZero(detail.AvailBal)
			balance.Used, _ = parseFloatOrZero(detail.FrozenBal)
			balance.Total, _ = parseFloatOrZero(detail.Eq)
		}
	}
	if balance.Total == 0 {
		balance.Total = balance.Free + balance.Used
	}
	return balance, nil
}

type positionData struct {
	InstID   string `json:"instId"`
	PosSide  string `json:"posSide"`
	Side     string `json:"side"`
	Pos      string `json:"pos"`
	AvgPx    string `json:"avgPx"`
	Notional string `json:"notionalUsd"`
	Lever    string `json:"lever"`
	MgnMode  string `json:"mgnMode"`
}

func (c *Client) GetPositions(ctx context.Context, instID string) ([]models.Position, error) {
	params := url.Values{}
	params.Set("instType", "SWAP")
	if instID != "" {
		params.Set("instId", instID)
	}

	var resp okxResponse[positionData]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v5/account/positions", params, nil, true, &resp); err != nil {
		return nil, err
	}

	var positions []models.Position
	for _, item := range resp.Data {
		contracts, _ := parseFloatOrZero(item.Pos)
		entry, _ := parseFloatOrZero(item.AvgPx)
		notional, _ := parseFloatOrZero(item.Notional)
		lever, _ := parseFloatOrZero(item.Lever)

		positions = append(positions, models.Position{
			Symbol:     item.InstID,
			Side:       normalizeSide(item.PosSide, item.Side, contracts),
			Contracts:  abs(contracts),
			EntryPrice: entry,
			Notional:   abs(notional),
			Leverage:   int(lever),
			MarginMode: models.MarginMode(item.MgnMode),
		})
	}
	return positions, nil
}

func (c *Client) SetLeverage(ctx context.Context, instID string, leverage int, marginMode models.MarginMode) error {
	body := map[string]any{
		"instId":  instID,
		"lever":   strconv.Itoa(leverage),
		"mgnMode": string(marginMode),
	}

	var resp okxResponse[struct{}]
	return c.doRequest(ctx, http.MethodPost, "/api/v5/account/set-leverage", nil, body, true, &resp)
}

// normalizeSide maps the two possible side fields the exchange may
// populate onto one canonical side. A net book reports signed contract
// counts instead, so the sign is the last resort.
func normalizeSide(posSide, side string, contracts float64) models.PositionSide {
	switch posSide {
	case "long":
		return models.SideLong
	case "short":
		return models.SideShort
	}
	switch side {
	case "long":
		return models.SideLong
	case "short":
		return models.SideShort
	}
	if contracts < 0 {
		return models.SideShort
	}
	return models.SideLong
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func parseFloatOrZero(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"aitrader/internal/models"
)

// rawDecision mirrors the JSON contract the decision source is asked to
// produce. Operation arrives in the source's vocabulary.
type rawDecision struct {
	Operation     string  `json:"operation"`
	Symbol        string  `json:"symbol"`
	TargetPortion float64 `json:"target_portion_of_balance"`
	Leverage      int     `json:"leverage"`
	Reason        string  `json:"reason"`
}

// Parse extracts one decision from raw model output. Models wrap JSON
// in markdown fences often enough that stripping them is mandatory.
func Parse(text string) (*models.Decision, error) {
	text = stripFences(text)

	var raw rawDecision
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse decision: %w", err)
	}

	return &models.Decision{
		Operation:     MapOperation(raw.Operation),
		Symbol:        strings.ToUpper(strings.TrimSpace(raw.Symbol)),
		TargetPortion: raw.TargetPortion,
		Leverage:      raw.Leverage,
		Reason:        raw.Reason,
	}, nil
}

// MapOperation translates the source vocabulary into engine operations.
// Unknown values pass through unchanged so validation can reject them
// with the original spelling in the record.
func MapOperation(op string) models.Operation {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "buy_long", "buy":
		return models.OperationOpenLong
	case "sell_short":
		return models.OperationOpenShort
	case "close_long":
		return models.OperationCloseLong
	case "close_short":
		return models.OperationCloseShort
	case "hold":
		return models.OperationHold
	default:
		return models.Operation(op)
	}
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	return strings.TrimSpace(text)
}

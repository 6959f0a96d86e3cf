package decision

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildPrompt renders the per-tick prompt: portfolio snapshot, current
// prices, and the strict JSON response contract.
func BuildPrompt(portfolio Portfolio, prices map[string]float64, symbols []string) string {
	portfolioJSON, _ := json.MarshalIndent(portfolio.Positions, "", "  ")
	pricesJSON, _ := json.MarshalIndent(prices, "", "  ")

	var b strings.Builder
	b.WriteString("You are a cryptocurrency perpetual futures trading assistant. ")
	b.WriteString("You may open leveraged long or short positions, close existing positions, or hold.\n\n")

	fmt.Fprintf(&b, "Portfolio:\n- Cash Available: $%.2f\n- Frozen Cash: $%.2f\n- Total Assets: $%.2f\n- Positions: %s\n\n",
		portfolio.Cash, portfolio.FrozenCash, portfolio.TotalAssets, portfolioJSON)
	fmt.Fprintf(&b, "Current Market Prices:\n%s\n\n", pricesJSON)

	b.WriteString("Respond with ONLY a JSON object in this exact format:\n")
	b.WriteString(`{"operation": "buy_long" or "sell_short" or "close_long" or "close_short" or "hold", `)
	fmt.Fprintf(&b, `"symbol": %q, `, strings.Join(symbols, "|"))
	b.WriteString(`"target_portion_of_balance": 0.15, "leverage": 3, "reason": "your analysis"}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- buy_long opens a long, sell_short opens a short.\n")
	b.WriteString("- close_long/close_short close that side only; target_portion_of_balance is then the fraction of the position to close (1.0 closes it entirely).\n")
	b.WriteString("- For opening operations target_portion_of_balance is the fraction of available cash to commit (0.0-1.0].\n")
	b.WriteString("- leverage is an integer between 1 and 50.\n")
	b.WriteString("- hold is a valid and often wise choice; do not overtrade.\n")

	return b.String()
}

package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"aitrader/internal/backoff"
	"aitrader/internal/logger"
	"aitrader/internal/models"
)

// Placeholder API keys that mark an account as not yet configured.
var placeholderKeys = map[string]bool{
	"default-key-please-update-in-settings": true,
	"default":                               true,
	"":                                      true,
}

// IsPlaceholderKey reports whether the account's decision-source key is
// an unconfigured default that must be skipped.
func IsPlaceholderKey(key string) bool {
	return placeholderKeys[key]
}

// Portfolio is the account snapshot handed to the decision source and
// recorded alongside the decision.
type Portfolio struct {
	Cash        float64                      `json:"cash"`
	FrozenCash  float64                      `json:"frozen_cash"`
	TotalAssets float64                      `json:"total_assets"`
	Positions   map[string]PortfolioPosition `json:"positions"`
}

type PortfolioPosition struct {
	Quantity     float64 `json:"quantity"`
	AvgCost      float64 `json:"avg_cost"`
	CurrentValue float64 `json:"current_value"`
	Leverage     int     `json:"leverage"`
	MarginMode   string  `json:"margin_mode"`
	Side         string  `json:"side"`
}

// Source asks an OpenAI-compatible chat endpoint for one trading
// decision per account per tick.
type Source struct {
	client  *resty.Client
	retry   backoff.Policy
	symbols []string
	log     *logger.Logger
}

func NewSource(timeout time.Duration, symbols []string, log *logger.Logger) *Source {
	client := resty.New()
	client.SetTimeout(timeout)

	return &Source{
		client:  client,
		retry:   backoff.Default(),
		symbols: symbols,
		log:     log,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
		} `json:"message"`
	} `json:"choices"`
}

// GetDecision returns the account's decision, or nil when the source
// produced nothing usable. A nil decision is not an error; the caller
// treats it as hold.
func (s *Source) GetDecision(ctx context.Context, account models.Account, portfolio Portfolio, prices map[string]float64) (*models.Decision, error) {
	prompt := BuildPrompt(portfolio, prices, s.symbols)

	payload := chatRequest{
		Model: account.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.5,
		MaxTokens:   1000,
	}

	endpoint := strings.TrimRight(account.BaseURL, "/") + "/chat/completions"

	var parsed chatResponse
	var lastErr error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		resp, err := s.client.R().
			SetContext(ctx).
			SetAuthToken(account.APIKey).
			SetBody(payload).
			SetResult(&parsed).
			ForceContentType("application/json").
			Post(endpoint)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode() == 429 {
			lastErr = fmt.Errorf("decision source rate limited: status 429")
		} else if resp.IsError() {
			return nil, fmt.Errorf("decision source status %d: %s", resp.StatusCode(), resp.String())
		} else {
			return s.extract(account, parsed)
		}

		if attempt < s.retry.MaxAttempts-1 {
			s.log.WithAccount(account.ID).WithError(lastErr).Warn("decision source call failed, retrying")
			if err := s.retry.Wait(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func (s *Source) extract(account models.Account, resp chatResponse) (*models.Decision, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty decision response")
	}

	choice := resp.Choices[0]
	content := choice.Message.Content
	if choice.FinishReason == "length" && content == "" {
		// Truncated responses sometimes carry partial text in the
		// reasoning field.
		content = choice.Message.Reasoning
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty decision content")
	}

	d, err := Parse(content)
	if err != nil {
		return nil, err
	}
	s.log.WithAccount(account.ID).WithFields(map[string]interface{}{
		"operation": d.Operation,
		"symbol":    d.Symbol,
	}).Info("decision received")
	return d, nil
}

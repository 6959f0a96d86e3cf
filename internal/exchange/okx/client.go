package okx

import (
	"net/http"
	"time"

	"aitrader/internal/exchange"
	"aitrader/internal/logger"
	"aitrader/internal/models"
)

type Client struct {
	baseURL    string
	apiKey     string
	secret     string
	passphrase string
	sandbox    bool

	httpClient *http.Client
	log        *logger.Logger
}

func New(baseURL, apiKey, secret, passphrase string, sandbox bool, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		secret:     secret,
		passphrase: passphrase,
		sandbox:    sandbox,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// NewFactory returns an exchange.Factory that builds one client per
// account credential set. A true sandbox flag forces simulated trading
// for every account, whatever its own setting says; an account can opt
// into the sandbox but never out of it.
func NewFactory(baseURL string, sandbox bool, log *logger.Logger) exchange.Factory {
	return func(account models.Account) exchange.Client {
		return New(baseURL, account.OKXAPIKey, account.OKXSecret, account.Passphrase, sandbox || account.Sandbox, log)
	}
}

package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Exchange ExchangeConfig
	Decision DecisionConfig
	Trading  TradingConfig
	Ledger   LedgerConfig
	Server   ServerConfig
	Runtime  RuntimeConfig
}

type ExchangeConfig struct {
	BaseUrl string
	Sandbox bool
}

type DecisionConfig struct {
	TickInterval time.Duration
	Timeout      time.Duration
}

type TradingConfig struct {
	Symbols     []string
	QuoteCoin   string
	MarginMode  string
	MaxLeverage int
	Workers     int
	TickWindow  time.Duration
}

type LedgerConfig struct {
	Path string
}

type ServerConfig struct {
	Addr string
}

type RuntimeConfig struct {
	DryRun bool
	Log    LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{}
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.ReadInConfig()

	viper.SetDefault("exchange.base_url", "https://www.okx.com")
	viper.SetDefault("exchange.sandbox", true)
	viper.SetDefault("decision.tick_interval_seconds", 1800)
	viper.SetDefault("decision.timeout_seconds", 30)
	viper.SetDefault("trading.symbols", []string{"BTC", "ETH", "SOL", "BNB", "XRP", "DOGE"})
	viper.SetDefault("trading.quote_coin", "USDT")
	viper.SetDefault("trading.margin_mode", "cross")
	viper.SetDefault("trading.max_leverage", 50)
	viper.SetDefault("trading.workers", 4)
	viper.SetDefault("trading.tick_window_seconds", 600)
	viper.SetDefault("ledger.path", "data/trader.db")
	viper.SetDefault("server.addr", ":8080")

	cfg.Exchange = ExchangeConfig{
		BaseUrl: envSub("exchange.base_url"),
		Sandbox: viper.GetBool("exchange.sandbox"),
	}

	cfg.Decision = DecisionConfig{
		TickInterval: time.Duration(viper.GetInt("decision.tick_interval_seconds")) * time.Second,
		Timeout:      time.Duration(viper.GetInt("decision.timeout_seconds")) * time.Second,
	}

	cfg.Trading = TradingConfig{
		Symbols:     viper.GetStringSlice("trading.symbols"),
		QuoteCoin:   viper.GetString("trading.quote_coin"),
		MarginMode:  viper.GetString("trading.margin_mode"),
		MaxLeverage: viper.GetInt("trading.max_leverage"),
		Workers:     viper.GetInt("trading.workers"),
		TickWindow:  time.Duration(viper.GetInt("trading.tick_window_seconds")) * time.Second,
	}

	cfg.Ledger = LedgerConfig{
		Path: envSub("ledger.path"),
	}

	cfg.Server = ServerConfig{
		Addr: viper.GetString("server.addr"),
	}

	cfg.Runtime = RuntimeConfig{
		DryRun: viper.GetBool("runtime.dry_run"),
		Log: LogConfig{
			Level:      viper.GetString("runtime.log.level"),
			Format:     viper.GetString("runtime.log.format"),
			File:       viper.GetString("runtime.log.file"),
			MaxSize:    viper.GetInt("runtime.log.max_size"),
			MaxBackups: viper.GetInt("runtime.log.max_backups"),
			MaxAge:     viper.GetInt("runtime.log.max_age"),
			Compress:   viper.GetBool("runtime.log.compress"),
		},
	}

	return cfg, nil
}

func envSub(key string) string {
	val := viper.GetString(key)
	if val == "" {
		return ""
	}

	re := regexp.MustCompile(`\$\{(\w+)\}`)
	return re.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}

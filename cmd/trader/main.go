package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aitrader/internal/config"
	"aitrader/internal/decision"
	"aitrader/internal/engine"
	"aitrader/internal/exchange/okx"
	"aitrader/internal/ledger"
	"aitrader/internal/logger"
	"aitrader/internal/notify"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})

	log.Info("trader starting")

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		log.WithError(err).Fatal("ledger open failed")
	}
	defer store.Close()

	hub := notify.NewHub(log)
	source := decision.NewSource(cfg.Decision.Timeout, cfg.Trading.Symbols, log)
	factory := okx.NewFactory(cfg.Exchange.BaseUrl, cfg.Exchange.Sandbox, log)
	eng := engine.New(cfg, factory, source, store, hub, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", hub)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped")
		}
	}()

	go runTicks(ctx, cfg, eng, store, log)

	<-sigCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	log.Info("trader stopped")
}

// runTicks fires one tick immediately, then on every interval. Account
// configuration is re-read each tick so management changes take effect
// without a restart.
func runTicks(ctx context.Context, cfg *config.Config, eng *engine.Engine, store *ledger.Store, log *logger.Logger) {
	tick := func() {
		accounts, err := store.ActiveAccounts(ctx)
		if err != nil {
			log.WithError(err).Error("account load failed, tick skipped")
			return
		}
		eng.RunTick(ctx, accounts)
	}

	tick()

	ticker := time.NewTicker(cfg.Decision.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

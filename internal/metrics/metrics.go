// Package metrics exposes the engine's prometheus series:
//
//	trader_decisions_total{operation} – decisions processed
//	trader_orders_total{result}       – orders placed
//	trader_rejections_total{reason}   – decisions that produced no trade
//	trader_account_equity_usd{account} – last observed total equity
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_decisions_total",
			Help: "Decisions processed",
		},
		[]string{"operation"},
	)

	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Orders placed",
		},
		[]string{"result"},
	)

	rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_rejections_total",
			Help: "Decisions rejected before or at submission",
		},
		[]string{"reason"},
	)

	equity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trader_account_equity_usd",
			Help: "Total account equity in USD at decision time",
		},
		[]string{"account"},
	)
)

func init() {
	prometheus.MustRegister(decisions, orders, rejections, equity)
}

func IncDecision(operation string) {
	decisions.WithLabelValues(operation).Inc()
}

func IncOrder(result string) {
	orders.WithLabelValues(result).Inc()
}

func IncRejection(reason string) {
	rejections.WithLabelValues(reason).Inc()
}

func SetEquity(account string, value float64) {
	equity.WithLabelValues(account).Set(value)
}

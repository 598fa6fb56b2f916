// Package metrics registers the Prometheus instruments the bot updates
// while running:
//
//   - bot_decisions_total{signal}      – entry decisions per tick (buy|sell|hold)
//   - bot_orders_total{result}         – order submissions (filled|rejected)
//   - bot_trades_closed_total{reason}  – closed trades by exit reason
//   - bot_open_trades                  – 0 or 1, the single-slot position state
//   - bot_account_balance              – last known account balance
//
// Serve exposes them on /metrics when a listen address is configured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Entry decisions taken per evaluation tick",
		},
		[]string{"signal"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Market order submissions by result",
		},
		[]string{"result"},
	)

	TradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_trades_closed_total",
			Help: "Closed trades by exit reason",
		},
		[]string{"reason"},
	)

	OpenTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_open_trades",
			Help: "Number of open trades (0 or 1)",
		},
	)

	Balance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_account_balance",
			Help: "Last known account balance",
		},
	)
)

func init() {
	prometheus.MustRegister(Decisions, Orders, TradesClosed, OpenTrades, Balance)
}

// Serve starts the /metrics listener. It blocks, so callers run it in a
// goroutine; errors are returned for the caller to log.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

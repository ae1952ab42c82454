// Package metrics holds the Prometheus collectors updated by the trader.
//
//   - autotrader_ticks_total{result}            trading ticks by outcome
//   - autotrader_orders_total{side,status}      orders attempted
//   - autotrader_decisions_total{strategy,signal}
//   - autotrader_api_retries_total{op}          broker call retries
//   - autotrader_exits_total{reason}            closed positions by exit reason
//   - autotrader_total_assets                   last computed total assets
//   - autotrader_reconciliation_mismatches      mismatches found by the last reconciliation
//
// Collectors are registered in init() and served at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_ticks_total",
			Help: "Trading ticks split by result (ok, disabled, no_cash, error)",
		},
		[]string{"result"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_orders_total",
			Help: "Orders attempted split by side and final status",
		},
		[]string{"side", "status"},
	)

	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_decisions_total",
			Help: "Strategy evaluations split by strategy and signal",
		},
		[]string{"strategy", "signal"},
	)

	APIRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_api_retries_total",
			Help: "Broker API retries split by operation",
		},
		[]string{"op"},
	)

	Exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autotrader_exits_total",
			Help: "Closed positions split by exit reason",
		},
		[]string{"reason"},
	)

	TotalAssets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autotrader_total_assets",
			Help: "Total assets (cash plus holdings) at the last status computation",
		},
	)

	ReconciliationMismatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autotrader_reconciliation_mismatches",
			Help: "Symbols whose local and broker quantities differed at the last reconciliation",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Ticks,
		Orders,
		Decisions,
		APIRetries,
		Exits,
		TotalAssets,
		ReconciliationMismatches,
	)
}

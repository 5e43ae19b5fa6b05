// File: internal/metrics/metrics.go
// ============================================
// Package metrics holds the Prometheus collectors the orchestrator updates:
//
//	bot_ticks_total                     - completed ticks
//	bot_signals_total{signal}           - analysis results (BUY|SELL|NONE)
//	bot_orders_total{side,result}       - order attempts (result: filled|rejected)
//	bot_partial_closes_total{result}    - partial take-profit closes
//	bot_stop_updates_total{result}      - trailing stop modifications
//	bot_filter_blocks_total{filter}     - ticks blocked per filter
//	bot_connector_errors_total{op}      - failed terminal calls
//	bot_balance, bot_equity             - account snapshot
//	bot_daily_drawdown, bot_total_drawdown
//	bot_open_positions, bot_current_atr
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics is one set of collectors bound to a registry.
type Metrics struct {
	Ticks           prometheus.Counter
	Signals         *prometheus.CounterVec
	Orders          *prometheus.CounterVec
	PartialCloses   *prometheus.CounterVec
	StopUpdates     *prometheus.CounterVec
	FilterBlocks    *prometheus.CounterVec
	ConnectorErrors *prometheus.CounterVec

	Balance       prometheus.Gauge
	Equity        prometheus.Gauge
	DailyDrawdown prometheus.Gauge
	TotalDrawdown prometheus.Gauge
	OpenPositions prometheus.Gauge
	CurrentATR    prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which tests use to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_ticks_total",
			Help: "Completed orchestrator ticks",
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_signals_total",
			Help: "Analysis results by signal",
		}, []string{"signal"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Order attempts by side and result",
		}, []string{"side", "result"}),
		PartialCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_partial_closes_total",
			Help: "Partial take-profit closes by result",
		}, []string{"result"}),
		StopUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_stop_updates_total",
			Help: "Trailing stop modifications by result",
		}, []string{"result"}),
		FilterBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_filter_blocks_total",
			Help: "Ticks blocked, split by filter",
		}, []string{"filter"}),
		ConnectorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_connector_errors_total",
			Help: "Failed terminal calls by operation",
		}, []string{"op"}),

		Balance:       prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_balance", Help: "Account balance"}),
		Equity:        prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_equity", Help: "Account equity"}),
		DailyDrawdown: prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_daily_drawdown", Help: "Drawdown from the daily start balance"}),
		TotalDrawdown: prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_total_drawdown", Help: "Drawdown from the peak balance"}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_open_positions", Help: "Positions tracked by the bot"}),
		CurrentATR:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_current_atr", Help: "ATR of the last analysed bar"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Ticks, m.Signals, m.Orders, m.PartialCloses, m.StopUpdates, m.FilterBlocks, m.ConnectorErrors,
			m.Balance, m.Equity, m.DailyDrawdown, m.TotalDrawdown, m.OpenPositions, m.CurrentATR,
		)
	}
	return m
}

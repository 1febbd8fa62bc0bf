package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BacktestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_runs_total",
		Help: "Total number of backtest runs executed",
	}, []string{"strategy"})

	BacktestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "backtest_duration_seconds",
		Help: "Wall-clock duration of backtest runs",
	})

	TradesSimulated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_simulated_total",
		Help: "Total number of simulated round-trip trades",
	}, []string{"symbol"})

	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Orders skipped or cancelled before filling",
	}, []string{"reason"})

	JobQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backtest_job_queue_depth",
		Help: "Number of backtest jobs waiting in the queue",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})
)

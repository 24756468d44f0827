// Package metrics Prometheus 指标
package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "worldend"

var (
	// CyclesTotal counts analysis cycles by outcome.
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total analysis cycles by outcome.",
		},
		[]string{"outcome"},
	)

	// EvaluatorCallsTotal counts LLM calls by result.
	EvaluatorCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluator_calls_total",
			Help:      "Total evaluator calls by result.",
		},
		[]string{"result"},
	)

	LatestScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "latest_score",
		Help:      "Most recently persisted world-end score.",
	})

	RealtimeClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_clients",
		Help:      "Number of connected websocket clients.",
	})

	APIRateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_rate_limited_total",
		Help:      "Total API requests rejected by the per-IP limiter.",
	})

	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
)

// Evaluator call results.
const (
	ResultOK          = "ok"
	ResultError       = "error"
	ResultRateLimited = "rate_limited"
	ResultDecodeError = "decode_error"
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		EvaluatorCallsTotal,
		LatestScore,
		RealtimeClients,
		APIRateLimitedTotal,
		DBOpenConnections,
		DBInUseConnections,
	)
}

// StartDBStatsCollector 定期采样连接池状态，ctx 结束时退出
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
		}
	}
}

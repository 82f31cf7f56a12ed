package metrics

import "github.com/prometheus/client_golang/prometheus"

// Oracle Prometheus metrics.
var (
	OracleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "oracle_requests_total",
			Help:      "Total number of scoring oracle requests",
		},
		[]string{"provider", "model", "status"},
	)

	OracleRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "incidex",
			Name:      "oracle_request_duration_seconds",
			Help:      "Scoring oracle request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	OracleTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "oracle_tokens_total",
			Help:      "Total oracle tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	OracleErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "oracle_errors_total",
			Help:      "Total scoring oracle errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	OracleBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "incidex",
			Name:      "oracle_budget_tokens_remaining",
			Help:      "Remaining oracle token budget",
		},
		[]string{"provider", "period"},
	)

	OracleCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "oracle_cache_total",
			Help:      "Oracle completion cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var oracleMetricsRegistered bool

// RegisterOracleMetrics registers Prometheus oracle metrics. Must be called once from main.
func RegisterOracleMetrics() {
	if oracleMetricsRegistered {
		return
	}
	prometheus.MustRegister(OracleRequestsTotal)
	prometheus.MustRegister(OracleRequestDuration)
	prometheus.MustRegister(OracleTokensTotal)
	prometheus.MustRegister(OracleErrorsTotal)
	prometheus.MustRegister(OracleBudgetTokensRemaining)
	prometheus.MustRegister(OracleCacheTotal)
	oracleMetricsRegistered = true
}

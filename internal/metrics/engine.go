package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine Prometheus metrics: ranking and scoring outcomes.
var (
	RankingCandidatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "ranking_candidates_total",
			Help:      "Incidents considered by the retrieval ranker",
		},
	)

	RankingSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "ranking_skipped_total",
			Help:      "Incidents skipped by the retrieval ranker",
		},
		[]string{"reason"}, // "invalid" / "panic"
	)

	RankingResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "ranking_results_total",
			Help:      "Ranked incidents returned to callers",
		},
	)

	ScoringTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "scoring_total",
			Help:      "PRISM assessments produced, by mode and status",
		},
		[]string{"mode", "status"},
	)

	ExplanationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "explanations_total",
			Help:      "Explanations generated, by mode and outcome",
		},
		[]string{"mode", "result"}, // "ok" / "fallback"
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidex",
			Name:      "events_published_total",
			Help:      "Scoring events published",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers Prometheus engine metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RankingCandidatesTotal)
	prometheus.MustRegister(RankingSkippedTotal)
	prometheus.MustRegister(RankingResultsTotal)
	prometheus.MustRegister(ScoringTotal)
	prometheus.MustRegister(ExplanationsTotal)
	prometheus.MustRegister(EventsPublishedTotal)
	engineMetricsRegistered = true
}

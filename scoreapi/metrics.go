package scoreapi

import "github.com/prometheus/client_golang/prometheus"

// Engine counters, served by integrations/prometheus when enabled.
var (
	recomputesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "magnetar",
		Name:      "recomputes_total",
		Help:      "Participation results recomputed",
	})
	ratingRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "magnetar",
		Name:      "rating_runs_total",
		Help:      "Completed rating scheduler runs",
	})
	ratingsWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "magnetar",
		Name:      "ratings_written_total",
		Help:      "Rating rows written by the scheduler",
	})
	ratingRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "magnetar",
		Name:      "rating_run_duration_seconds",
		Help:      "Wall time of one rating scheduler run",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 10),
	})
)

func init() {
	prometheus.MustRegister(recomputesTotal, ratingRunsTotal, ratingsWrittenTotal, ratingRunDuration)
}

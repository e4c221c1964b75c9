package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	cleanupDuration *prom.HistogramVec
	entriesRemoved  *prom.CounterVec
	entriesFailed   *prom.CounterVec
	wipeouts        *prom.CounterVec
	rootOutcomes    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.cleanupDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "wscleanup",
			Name:      "root_cleanup_duration_seconds",
			Help:      "Duration of cleanup per workspace root",
			Buckets:   prom.DefBuckets,
		}, []string{"strategy"})
		pr.entriesRemoved = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wscleanup",
			Name:      "entries_removed_total",
			Help:      "Filesystem entries removed, by strategy",
		}, []string{"strategy"})
		pr.entriesFailed = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wscleanup",
			Name:      "entries_failed_total",
			Help:      "Filesystem entries that could not be removed, by strategy",
		}, []string{"strategy"})
		pr.wipeouts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wscleanup",
			Name:      "wipeouts_total",
			Help:      "Whole-workspace wipeouts by state machine path taken",
		}, []string{"path"})
		pr.rootOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wscleanup",
			Name:      "root_outcomes_total",
			Help:      "Per-root cleanup outcomes",
		}, []string{"outcome"})
		reg.MustRegister(pr.cleanupDuration, pr.entriesRemoved, pr.entriesFailed, pr.wipeouts, pr.rootOutcomes)
	})
	return pr
}

func (pr *PrometheusRecorder) ObserveRootCleanupDuration(strategy string, d time.Duration) {
	pr.cleanupDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) AddEntriesRemoved(strategy string, n int) {
	pr.entriesRemoved.WithLabelValues(strategy).Add(float64(n))
}

func (pr *PrometheusRecorder) AddEntriesFailed(strategy string, n int) {
	pr.entriesFailed.WithLabelValues(strategy).Add(float64(n))
}

func (pr *PrometheusRecorder) IncWipeout(path WipeoutPath) {
	pr.wipeouts.WithLabelValues(string(path)).Inc()
}

func (pr *PrometheusRecorder) IncRootOutcome(clean bool) {
	outcome := "clean"
	if !clean {
		outcome = "residue"
	}
	pr.rootOutcomes.WithLabelValues(outcome).Inc()
}

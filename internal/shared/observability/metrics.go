package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkdelta_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkdelta_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	ReportsParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkdelta_reports_parsed_total",
		Help: "Total number of Checkstyle reports read, by outcome.",
	}, []string{"outcome"})

	IssuesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "checkdelta_issues",
		Help: "Issues of the last analyzed build, by priority.",
	}, []string{"priority"})

	DeltaIssues = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "checkdelta_delta_issues",
		Help: "New and fixed issues of the last analyzed build.",
	}, []string{"kind"})

	FingerprintMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkdelta_fingerprint_misses_total",
		Help: "Issues whose scope could not be located in the source, by reason.",
	}, []string{"reason"})

	HealthScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkdelta_health_score",
		Help: "Health score of the last analyzed build.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkdelta_watcher_events_total",
		Help: "Total number of file system events seen by the report watcher.",
	})

	HistoryRetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkdelta_history_retry_total",
		Help: "Total number of retried history store operations.",
	})
)

// WriteTextfile exports the default registry in the node-exporter textfile
// format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

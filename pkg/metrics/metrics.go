package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsSubmittedTotal counts AddJob calls accepted by the dispatcher.
	JobsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_jobs_submitted_total",
			Help: "Total number of jobs submitted to the broker",
		},
	)

	// JobsCompletedTotal counts JobResponse messages delivered to handlers, by outcome.
	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_jobs_completed_total",
			Help: "Total number of job responses delivered, by outcome",
		},
		[]string{"outcome"},
	)

	// ArtifactsPushedTotal counts completed artifact pushes, by result.
	ArtifactsPushedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_artifacts_pushed_total",
			Help: "Total number of artifact push attempts, by result",
		},
		[]string{"result"},
	)

	// BytesUploadedTotal counts bytes streamed to the broker across all pushes.
	BytesUploadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_bytes_uploaded_total",
			Help: "Total number of artifact bytes streamed to the broker",
		},
	)

	// UploadsInFlight reports the current size of the upload tracker.
	UploadsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_uploads_in_flight",
			Help: "Number of artifact uploads currently tracked",
		},
	)

	// ArtifactPushDuration times a single artifact push end-to-end.
	ArtifactPushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_artifact_push_duration_seconds",
			Help:    "Time taken to push one artifact to the broker",
			Buckets: prometheus.DefBuckets,
		},
	)

	// MetadataFoldDuration times one directive-list fold for a case context.
	MetadataFoldDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_metadata_fold_duration_seconds",
			Help:    "Time taken to fold a directive list into effective metadata",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DigestStoreLookupsTotal counts digest store lookups, by outcome.
	DigestStoreLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_digest_store_lookups_total",
			Help: "Total number of digest store lookups, by outcome (hit, miss)",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(JobsSubmittedTotal)
	prometheus.MustRegister(JobsCompletedTotal)
	prometheus.MustRegister(ArtifactsPushedTotal)
	prometheus.MustRegister(BytesUploadedTotal)
	prometheus.MustRegister(UploadsInFlight)
	prometheus.MustRegister(ArtifactPushDuration)
	prometheus.MustRegister(MetadataFoldDuration)
	prometheus.MustRegister(DigestStoreLookupsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

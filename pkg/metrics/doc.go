/*
Package metrics provides Prometheus metrics collection and exposition for the
client-side execution core.

The metrics package defines and registers all client metrics using the
Prometheus client library, providing observability into job submission,
artifact upload throughput, digest store effectiveness, and metadata folding
latency. Metrics are exposed via an HTTP endpoint for scraping by Prometheus
servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Categories               │          │
	│  │                                              │          │
	│  │  Jobs: submitted, completed by outcome      │          │
	│  │  Artifacts: pushed, bytes uploaded          │          │
	│  │  Digest store: lookup hit/miss              │          │
	│  │  Metadata: fold duration                    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

relay_jobs_submitted_total:
  - Type: Counter
  - Description: Jobs accepted by the dispatcher via AddJob

relay_jobs_completed_total{outcome}:
  - Type: Counter
  - Description: Job responses delivered, by outcome (completed, timed_out,
    execution_error, system_error)

relay_artifacts_pushed_total{result}:
  - Type: Counter
  - Description: Artifact push attempts, by result (success, failure)

relay_bytes_uploaded_total:
  - Type: Counter
  - Description: Bytes streamed to the broker across all artifact pushes

relay_uploads_in_flight:
  - Type: Gauge
  - Description: Number of artifact uploads currently tracked by the upload
    tracker, sampled by Collector every 15s

relay_artifact_push_duration_seconds:
  - Type: Histogram
  - Description: Time to push one artifact to the broker, dial through ack

relay_metadata_fold_duration_seconds:
  - Type: Histogram
  - Description: Time to fold a directive list into effective metadata for
    one case context

relay_digest_store_lookups_total{outcome}:
  - Type: Counter
  - Description: Digest store lookups, by outcome (hit, miss); a stale
    entry counts as a miss

# Usage

	timer := metrics.NewTimer()
	digest, err := pushArtifact(ctx, path)
	timer.ObserveDuration(metrics.ArtifactPushDuration)
	if err != nil {
		metrics.ArtifactsPushedTotal.WithLabelValues("failure").Inc()
		return err
	}
	metrics.ArtifactsPushedTotal.WithLabelValues("success").Inc()
	metrics.BytesUploadedTotal.Add(float64(size))

	http.Handle("/metrics", metrics.Handler())

# Collector

Collector polls a Snapshotter (satisfied by pkg/artifact.Tracker) on a 15s
ticker and republishes its in-flight count to relay_uploads_in_flight. It is
started once at client construction and stopped when the driver shuts down.

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics

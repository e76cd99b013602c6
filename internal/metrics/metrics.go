// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "photogram"

var (
	// MirrorRepairs counts follower-set writes made by reconciliation rather than by
	// the follow/unfollow call that caused them.
	MirrorRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "mirror_repairs_total",
		Help:      "Follower entries added or removed by reconciliation.",
	})

	// MirrorFailures counts follow/unfollow calls whose follower mirror could not be
	// written inline and was left to the worker.
	MirrorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "mirror_failures_total",
		Help:      "Follow/unfollow calls whose follower mirror was deferred to reconciliation.",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of full relationship reconciliation sweeps.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	StoreConflictRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "conflict_retries_total",
		Help:      "Optimistic transaction conflicts retried by the embedded store.",
	}, []string{"op"})

	FeedBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "build_duration_seconds",
		Help:      "Time to assemble a feed by fan-out on read.",
		Buckets:   prometheus.DefBuckets,
	})

	BlobDeleteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "content",
		Name:      "blob_delete_failures_total",
		Help:      "Stored bytes that could not be deleted after their metadata was removed.",
	})

	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "events_handled_total",
		Help:      "Stream events processed by workers.",
	}, []string{"type", "result"})
)

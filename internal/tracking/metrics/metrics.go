package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanCycles tracks completed scan cycles per engine
	ScanCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_scan_cycles_total",
			Help: "Total number of completed scan cycles",
		},
		[]string{"engine"},
	)

	// ScanDuration tracks scan cycle duration per engine
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_scan_duration_seconds",
			Help:    "Scan cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	// AlertsEmitted tracks dispatched alerts by payload kind
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_alerts_emitted_total",
			Help: "Total number of alerts dispatched",
		},
		[]string{"kind"},
	)

	// UpstreamCalls tracks analytics API calls per method
	UpstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_upstream_calls_total",
			Help: "Total number of analytics API calls",
		},
		[]string{"method"},
	)

	// UpstreamErrors tracks analytics API failures per method
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_upstream_errors_total",
			Help: "Total number of analytics API errors",
		},
		[]string{"method"},
	)

	// UpstreamLatency tracks analytics API call latency
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_upstream_latency_seconds",
			Help:    "Analytics API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// TrackedWallets tracks the number of (wallet, subscriber) pairs
	TrackedWallets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_tracked_wallets",
			Help: "Number of tracked (wallet, subscriber) pairs",
		},
	)

	// WhaleSubscriptions tracks the number of (subscriber, token) thresholds
	WhaleSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_whale_subscriptions",
			Help: "Number of whale alert subscriptions",
		},
	)

	// BackoffSkips tracks subscribers skipped due to backoff
	BackoffSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_backoff_skips_total",
			Help: "Total number of per-subscriber backoff skips",
		},
	)

	// PersistenceErrors tracks store read/write failures
	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_persistence_errors_total",
			Help: "Total number of persistence store failures",
		},
		[]string{"op"},
	)
)

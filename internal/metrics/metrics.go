package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// quote sources
const (
	SourceLive      = "live"
	SourceCache     = "cache"
	SourceSynthetic = "synthetic"
)

var (
	QuoteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_alert_quote_fetches_total",
		Help: "Quotes served, by source.",
	}, []string{"source"})

	Alerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_alert_alerts_total",
		Help: "Alert events produced by portfolio scans, by signal.",
	}, []string{"signal"})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "price_alert_scan_duration_seconds",
		Help:    "Duration of a full portfolio scan.",
		Buckets: prometheus.DefBuckets,
	})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_alert_notification_failures_total",
		Help: "Notifications that could not be delivered, by sink.",
	}, []string{"sink"})
)

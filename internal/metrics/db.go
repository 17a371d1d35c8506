package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dbUp is 1 when the last ping to the database succeeded, else 0.
	dbUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "docrepo",
		Subsystem: "db",
		Name:      "up",
		Help:      "Database availability (1=up, 0=down).",
	})
	// dbPingSeconds observes database ping latency in seconds.
	dbPingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docrepo",
		Subsystem: "db",
		Name:      "ping_seconds",
		Help:      "Database ping latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	// indexedResources tracks the number of resources held in each index.
	// Labels:
	// - repo: the repository id
	indexedResources = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docrepo",
			Subsystem: "index",
			Name:      "resources",
			Help:      "Resources held in the in-memory index per repository.",
		},
		[]string{"repo"},
	)
)

// SetDBUp sets the db_up gauge to 1/0.
func SetDBUp(up bool) {
	if up {
		dbUp.Set(1)
		return
	}
	dbUp.Set(0)
}

// ObserveDBPing records a database ping latency in seconds.
func ObserveDBPing(seconds float64) { dbPingSeconds.Observe(seconds) }

// SetIndexedResources sets the per-repository index size gauge.
func SetIndexedResources(repo string, count int) {
	if repo == "" {
		repo = "unknown"
	}
	indexedResources.WithLabelValues(repo).Set(float64(count))
}

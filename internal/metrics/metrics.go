package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reconcilePassDuration observes full reconciliation pass latency per repository.
	// Labels:
	// - repo: the repository id
	reconcilePassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docrepo",
			Subsystem: "reconcile",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a full reconciliation pass.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"repo"},
	)

	// reconcileChangesTotal counts files applied per pass by change kind.
	// Labels:
	// - repo: the repository id
	// - kind: "new" | "modified" | "deleted"
	reconcileChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docrepo",
			Subsystem: "reconcile",
			Name:      "changes_total",
			Help:      "Files reconciled into the index by change kind.",
		},
		[]string{"repo", "kind"},
	)

	// reconcileSkipsTotal counts files skipped because of per-file failures.
	// Labels:
	// - repo: the repository id
	reconcileSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docrepo",
			Subsystem: "reconcile",
			Name:      "skips_total",
			Help:      "Files skipped during reconciliation due to per-file failures.",
		},
		[]string{"repo"},
	)

	// vcsFailuresTotal counts failed git invocations by operation.
	// Labels:
	// - op: the git subcommand, like "commit" or "pull"
	vcsFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docrepo",
			Subsystem: "vcs",
			Name:      "failures_total",
			Help:      "Failed git invocations by subcommand.",
		},
		[]string{"op"},
	)

	// editCommitsTotal counts attributed document edit commits per repository.
	// Labels:
	// - repo: the repository id
	editCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docrepo",
			Subsystem: "vcs",
			Name:      "edit_commits_total",
			Help:      "Attributed document edit commits.",
		},
		[]string{"repo"},
	)
)

// ObserveReconcilePass records the duration of one reconciliation pass.
func ObserveReconcilePass(repo string, seconds float64) {
	if repo == "" {
		repo = "unknown"
	}
	reconcilePassDuration.WithLabelValues(repo).Observe(seconds)
}

// AddReconcileChanges adds to the change counter for one kind.
func AddReconcileChanges(repo, kind string, n int) {
	if repo == "" {
		repo = "unknown"
	}
	if kind == "" {
		kind = "unknown"
	}
	reconcileChangesTotal.WithLabelValues(repo, kind).Add(float64(n))
}

// IncReconcileSkip counts one skipped file.
func IncReconcileSkip(repo string) {
	if repo == "" {
		repo = "unknown"
	}
	reconcileSkipsTotal.WithLabelValues(repo).Inc()
}

// IncVCSFailure counts one failed git invocation.
func IncVCSFailure(op string) {
	if op == "" {
		op = "unknown"
	}
	vcsFailuresTotal.WithLabelValues(op).Inc()
}

// IncEditCommit counts one attributed edit commit.
func IncEditCommit(repo string) {
	if repo == "" {
		repo = "unknown"
	}
	editCommitsTotal.WithLabelValues(repo).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EventsReceived counts inbound order events accepted at the webhook boundary.
var EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ordermerge",
	Subsystem: "matching",
	Name:      "events_received_total",
	Help:      "Order creation events accepted for processing",
})

// EventsSkipped counts events discarded by a guard before matching.
// guard is "cancelled" or "merge_output".
var EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ordermerge",
	Subsystem: "matching",
	Name:      "events_skipped_total",
	Help:      "Events discarded by a matching guard",
}, []string{"guard"})

// GroupsCreated counts merge groups created, labelled by match reason.
var GroupsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ordermerge",
	Subsystem: "matching",
	Name:      "groups_created_total",
	Help:      "Merge groups created by the matching engine",
}, []string{"reason"})

// CandidateConflicts counts group creations aborted because a concurrent
// detection claimed an overlapping candidate set first.
var CandidateConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ordermerge",
	Subsystem: "matching",
	Name:      "candidate_conflicts_total",
	Help:      "Group creations aborted on candidate ownership conflict",
})

// MergesCompleted counts merge executions that reached completed or
// draft_created.
var MergesCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ordermerge",
	Subsystem: "merge",
	Name:      "merges_completed_total",
	Help:      "Merge executions finished successfully",
})

// MergesFailed counts merge executions that transitioned a group to failed.
var MergesFailed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ordermerge",
	Subsystem: "merge",
	Name:      "merges_failed_total",
	Help:      "Merge executions that failed",
})

// MergeDuration observes wall time of one merge execution.
var MergeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "ordermerge",
	Subsystem: "merge",
	Name:      "merge_duration_seconds",
	Help:      "Duration of merge executions in seconds",
	Buckets:   prometheus.DefBuckets,
})

// Package metrics defines and registers all custom Prometheus metrics for the
// TaskPilot API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskpilot"

// ── Task metrics ──────────────────────────────────────────────────────────────

// TasksCreatedTotal counts newly created tasks.
// Label:
//   - priority: "High", "Medium" or "Low"
var TasksCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created, by priority.",
	},
	[]string{"priority"},
)

// TaskStatusChangesTotal counts single-task status updates.
// Label:
//   - status: the new status
var TaskStatusChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_status_changes_total",
		Help:      "Total number of task status updates, by new status.",
	},
	[]string{"status"},
)

// BulkTasksTotal counts tasks changed by bulk operations.
// Label:
//   - operation: "complete" or "reassign"
var BulkTasksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bulk_tasks_total",
		Help:      "Total number of tasks changed by bulk operations.",
	},
	[]string{"operation"},
)

// ── Persistence metrics ───────────────────────────────────────────────────────

// FlushesTotal counts workspace flushes.
// Labels:
//   - trigger: "request", "autosave" or "logout"
//   - result: "ok" or "error"
var FlushesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flushes_total",
		Help:      "Total number of workspace flushes, by trigger and result.",
	},
	[]string{"trigger", "result"},
)

// FlushDuration measures how long a flush takes to reach the record store.
// Label:
//   - trigger: "request", "autosave" or "logout"
var FlushDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "flush_duration_seconds",
		Help:      "Duration of workspace flushes to the record store.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"trigger"},
)

// AutosaveQueueDepth tracks sessions waiting to be flushed by each autosave worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AutosaveQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "autosave_queue_depth",
		Help:      "Current number of sessions pending in each autosave worker channel.",
	},
	[]string{"worker_id"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// ActiveSessions is the number of live sessions held by this process.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of live login sessions held in memory.",
	},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok" or "denied"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

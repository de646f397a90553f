package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ContextsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlg_contexts_started_total",
		Help: "Total number of dialogue contexts that entered a first node.",
	})

	ContextsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlg_contexts_failed_total",
		Help: "Total number of traversal failures, labelled by reason.",
	}, []string{"reason"})

	NodesEntered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlg_nodes_entered_total",
		Help: "Total number of nodes entered, labelled by node kind.",
	}, []string{"kind"})

	OptionsChosen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlg_options_chosen_total",
		Help: "Total number of options chosen by hosts.",
	})

	SelectorPicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlg_selector_picks_total",
		Help: "Total number of selector picks, labelled by mode.",
	}, []string{"mode"})

	OpsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlg_ops_dropped_total",
		Help: "Total number of session operations rejected due to a full queue.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dlg_active_sessions",
		Help: "Number of live dialogue sessions.",
	})

	SessionsExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlg_sessions_expired_total",
		Help: "Total number of sessions removed by the sweep, labelled by reason.",
	}, []string{"reason"})

	OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dlg_session_op_duration_ms",
		Help:    "Session operation latency in milliseconds, labelled by operation.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000},
	}, []string{"op"})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dlg_queue_utilization_ratio",
		Help: "Current session queue utilization (0 to 1).",
	})
)

// Failure reasons used as the ContextsFailed label.
const (
	ReasonStart         = "start"
	ReasonStuck         = "stuck"
	ReasonCycle         = "cycle"
	ReasonInvalidChoice = "invalid_choice"
	ReasonOther         = "other"
)

// Expiry reasons used as the SessionsExpired label.
const (
	ExpiredIdle  = "idle"
	ExpiredEnded = "ended"
)

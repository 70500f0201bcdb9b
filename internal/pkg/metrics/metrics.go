package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Help lifecycle counters. Registered on the default registry; the /metrics
// route serves them through promhttp.
var (
	HelpAssigned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerhelp",
		Name:      "help_assigned_total",
		Help:      "Help transactions created",
	})

	HelpConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peerhelp",
		Name:      "help_confirmed_total",
		Help:      "Help transactions confirmed, by kind (normal or forced)",
	}, []string{"kind"})

	HelpTimedOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerhelp",
		Name:      "help_timeout_total",
		Help:      "Help transactions expired by the deadline watcher",
	})

	HelpDisputed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerhelp",
		Name:      "help_disputed_total",
		Help:      "Help transactions disputed by receivers",
	})

	HelpCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerhelp",
		Name:      "help_cancelled_total",
		Help:      "Help transactions cancelled by admins",
	})

	UsersBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peerhelp",
		Name:      "users_blocked_total",
		Help:      "Income blocks applied, by reason (checkpoint or timeout)",
	}, []string{"reason"})

	UsersUnblocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerhelp",
		Name:      "users_unblocked_total",
		Help:      "Income blocks lifted by confirmed unblock payments",
	})

	AssignConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerhelp",
		Name:      "assign_conflicts_total",
		Help:      "Assignments aborted after losing a concurrent slot race",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "peerhelp",
		Name:      "deadline_sweep_seconds",
		Help:      "Duration of one deadline watcher sweep",
		Buckets:   prometheus.DefBuckets,
	})
)

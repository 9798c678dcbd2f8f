package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters, labelled by event class where the distinction matters.
var (
	SeedsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triggerd_cron_seeds_inserted_total",
		Help: "Cron event seeds submitted by the generator",
	})

	EventsLocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triggerd_events_locked_total",
		Help: "Due events claimed by this replica",
	}, []string{"class"})

	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triggerd_events_delivered_total",
		Help: "Events whose webhook delivery succeeded",
	}, []string{"class"})

	EventsRetried = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triggerd_events_retried_total",
		Help: "Events rescheduled for another attempt",
	}, []string{"class"})

	EventsErrored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triggerd_events_errored_total",
		Help: "Events that exhausted their retry budget",
	}, []string{"class"})

	EventsDead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triggerd_events_dead_total",
		Help: "Events declared dead for exceeding their lateness tolerance",
	}, []string{"class"})
)

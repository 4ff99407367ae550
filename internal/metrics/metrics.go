// Package metrics exposes prometheus instrumentation for the dispatch layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsEmitted counts events emitted on the event bus, by category.
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wirebus",
		Name:      "events_emitted_total",
		Help:      "Number of events emitted, by category.",
	}, []string{"category"})

	// EventDeliveries counts individual handler invocations for events.
	EventDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wirebus",
		Name:      "event_deliveries_total",
		Help:      "Number of event handler invocations.",
	})

	// HandlerErrors counts handler failures (returned errors and panics), by bus.
	HandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wirebus",
		Name:      "handler_errors_total",
		Help:      "Number of handler failures, by bus kind.",
	}, []string{"bus"})

	// HookCalls counts hook chain invocations.
	HookCalls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wirebus",
		Name:      "hook_calls_total",
		Help:      "Number of hook chain dispatches.",
	})

	// WaitTimeouts counts WaitFor expirations.
	WaitTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wirebus",
		Name:      "wait_timeouts_total",
		Help:      "Number of WaitFor calls that timed out.",
	})
)

package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "retro"

var (
	connectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Number of registered websocket connections.",
	})

	sessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of sessions with at least one online user.",
	})

	boundGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bound_connections",
		Help:      "Number of connections joined to a session.",
	})

	eventsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_sent_total",
		Help:      "Events delivered to connection buffers, by event kind.",
	}, []string{"event"})

	eventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Events dropped because a connection buffer was full, by event kind.",
	}, []string{"event"})

	commandsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_received_total",
		Help:      "Commands received from connections, by command kind.",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(connectionsGauge)
	prometheus.MustRegister(sessionsGauge)
	prometheus.MustRegister(boundGauge)
	prometheus.MustRegister(eventsSent)
	prometheus.MustRegister(eventsDropped)
	prometheus.MustRegister(commandsReceived)
}

// SetConnections records the number of registered connections.
func SetConnections(n int) { connectionsGauge.Set(float64(n)) }

// SetPresence records the number of active sessions and bound connections.
func SetPresence(sessions, bound int) {
	sessionsGauge.Set(float64(sessions))
	boundGauge.Set(float64(bound))
}

// EventSent counts one delivered event.
func EventSent(kind string) { eventsSent.WithLabelValues(kind).Inc() }

// EventDropped counts one dropped event.
func EventDropped(kind string) { eventsDropped.WithLabelValues(kind).Inc() }

// CommandReceived counts one inbound command.
func CommandReceived(kind string) { commandsReceived.WithLabelValues(kind).Inc() }

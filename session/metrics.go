package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the session's Prometheus instruments, exposed by the
// local viewer at /metrics.
type Metrics struct {
	framesReceived     *prometheus.CounterVec
	framesSent         *prometheus.CounterVec
	protocolViolations prometheus.Counter
	actionsReplayed    prometheus.Counter
	snapshotsSent      prometheus.Counter
	snapshotFailures   prometheus.Counter
	pings              prometheus.Counter
}

// NewMetrics registers the session instruments with reg. Pass a fresh
// registry in tests to keep registrations isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchbox",
			Subsystem: "session",
			Name:      "frames_received_total",
			Help:      "Inbound wire frames by decoded action kind",
		}, []string{"kind"}),

		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchbox",
			Subsystem: "session",
			Name:      "frames_sent_total",
			Help:      "Outbound wire frames by action kind",
		}, []string{"kind"}),

		protocolViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sketchbox",
			Subsystem: "session",
			Name:      "protocol_violations_total",
			Help:      "Malformed inbound frames dropped without closing the connection",
		}),

		actionsReplayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sketchbox",
			Subsystem: "session",
			Name:      "actions_replayed_total",
			Help:      "Actions drained from the queue and replayed onto the canvas",
		}),

		snapshotsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sketchbox",
			Subsystem: "session",
			Name:      "snapshots_sent_total",
			Help:      "Snapshot replies transmitted",
		}),

		snapshotFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sketchbox",
			Subsystem: "session",
			Name:      "snapshot_failures_total",
			Help:      "Snapshot captures that failed to compress",
		}),

		pings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sketchbox",
			Subsystem: "session",
			Name:      "pings_total",
			Help:      "Keepalive pings answered with a pong",
		}),
	}
}

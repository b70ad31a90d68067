package relay

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rejection reasons.
const (
	RejectOrigin   = "origin"
	RejectRoomFull = "room_full"
	RejectUpgrade  = "upgrade"
)

// Metrics holds the relay's Prometheus collectors on a private registry, so
// several relays (tests) can coexist in one process. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	connections  prometheus.Counter
	participants prometheus.Gauge
	messages     prometheus.Counter
	deliveries   prometheus.Counter
	bytes        prometheus.Counter
	rejected     *prometheus.CounterVec
}

// NewMetrics creates and registers the relay collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duocall_relay_connections_total",
			Help: "Participants accepted into a room since start",
		}),
		participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duocall_relay_participants",
			Help: "Number of currently connected participants",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duocall_relay_messages_total",
			Help: "Signaling frames received from participants",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duocall_relay_deliveries_total",
			Help: "Signaling frames queued to recipients",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duocall_relay_bytes_total",
			Help: "Payload bytes of received signaling frames",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duocall_relay_rejected_total",
			Help: "Connections refused by the relay",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.connections,
		m.participants,
		m.messages,
		m.deliveries,
		m.bytes,
		m.rejected,
		collectors.NewGoCollector(),
		collectors.NewBuildInfoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus/OpenMetrics text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) joined() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.participants.Inc()
}

func (m *Metrics) left() {
	if m == nil {
		return
	}
	m.participants.Dec()
}

func (m *Metrics) received(size int) {
	if m == nil {
		return
	}
	m.messages.Inc()
	m.bytes.Add(float64(size))
}

func (m *Metrics) delivered() {
	if m == nil {
		return
	}
	m.deliveries.Inc()
}

func (m *Metrics) reject(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

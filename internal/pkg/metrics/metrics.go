package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fleetsim"

// Metrics groups every collector exported by the fleet hub.
// All methods are safe on a nil receiver so components run without metrics.
type Metrics struct {
	// TicksTotal counts completed simulation ticks.
	TicksTotal prometheus.Counter

	// TickDuration observes advance plus broadcast time per tick.
	TickDuration prometheus.Histogram

	// BroadcastTotal counts per-subscriber delivery outcomes.
	// result: delivered/dropped
	BroadcastTotal *prometheus.CounterVec

	// ActiveSubscribers tracks the registry size.
	ActiveSubscribers prometheus.Gauge

	// Vehicles tracks the fleet by status after the latest tick.
	Vehicles *prometheus.GaugeVec

	// HTTPRequestsTotal counts query service requests.
	HTTPRequestsTotal *prometheus.CounterVec

	// MQTTConnectivityStatus is 1 while the broker connection is up, 0 otherwise.
	MQTTConnectivityStatus prometheus.Gauge

	// MQTTPublishTotal counts snapshot publications.
	// status: success/failed
	MQTTPublishTotal *prometheus.CounterVec

	// MQTTPublishLatency observes broker round trips per topic.
	MQTTPublishLatency *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of simulation ticks.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent advancing and broadcasting one tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		BroadcastTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_messages_total",
			Help:      "Per-subscriber broadcast outcomes.",
		}, []string{"result"}),
		ActiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_subscribers",
			Help:      "Number of registered WebSocket subscribers.",
		}),
		Vehicles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vehicles",
			Help:      "Number of vehicles by status.",
		}, []string{"status"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		MQTTConnectivityStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connectivity_status",
			Help:      "The connectivity status to the MQTT broker (1=Ready, 0=NotReady).",
		}),
		MQTTPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publish_total",
			Help:      "Snapshot publications to the MQTT broker.",
		}, []string{"topic", "status"}),
		MQTTPublishLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mqtt_publish_latency_seconds",
			Help:      "Latency of snapshot publications.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickDuration,
		m.BroadcastTotal,
		m.ActiveSubscribers,
		m.Vehicles,
		m.HTTPRequestsTotal,
		m.MQTTConnectivityStatus,
		m.MQTTPublishTotal,
		m.MQTTPublishLatency,
	)
	return m
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TicksTotal.Inc()
	m.TickDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveBroadcast(delivered, dropped int) {
	if m == nil {
		return
	}
	m.BroadcastTotal.WithLabelValues("delivered").Add(float64(delivered))
	m.BroadcastTotal.WithLabelValues("dropped").Add(float64(dropped))
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.ActiveSubscribers.Set(float64(n))
}

func (m *Metrics) SetVehicles(status string, n int) {
	if m == nil {
		return
	}
	m.Vehicles.WithLabelValues(status).Set(float64(n))
}

func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, statusCode(code)).Inc()
}

func (m *Metrics) SetMQTTConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.MQTTConnectivityStatus.Set(1)
		return
	}
	m.MQTTConnectivityStatus.Set(0)
}

func (m *Metrics) ObservePublish(topic string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.MQTTPublishTotal.WithLabelValues(topic, status).Inc()
	m.MQTTPublishLatency.WithLabelValues(topic).Observe(d.Seconds())
}

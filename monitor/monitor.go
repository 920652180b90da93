// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ConnectedClients prometheus.Gauge
	ActiveParties    prometheus.Gauge
	EventsPublished  prometheus.Counter
	RequestLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Number of connected WebSocket clients",
		}),
		ActiveParties: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_parties",
			Help:      "Number of parties with at least one subscriber",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events broadcast to party rooms",
		}),
		RequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "Party operation latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.ConnectedClients,
		m.ActiveParties,
		m.EventsPublished,
		m.RequestLatency,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	expvar.Publish("requests", expvar.Func(func() interface{} {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return m.requestCount
	}))
	mux.Handle("/debug/vars", expvar.Handler())

	go http.ListenAndServe(addr, mux)
}

func (m *Monitor) IncConnectedClients() {
	m.metrics.ConnectedClients.Inc()
}

func (m *Monitor) DecConnectedClients() {
	m.metrics.ConnectedClients.Dec()
}

func (m *Monitor) SetActiveParties(count int) {
	m.metrics.ActiveParties.Set(float64(count))
}

func (m *Monitor) IncEventsPublished() {
	m.metrics.EventsPublished.Inc()
}

func (m *Monitor) ObserveRequestLatency(duration time.Duration) {
	m.metrics.RequestLatency.Observe(duration.Seconds())

	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

package tick

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for a counter service and its
// supervisor. A nil *Metrics records nothing.
type Metrics struct {
	ticks           prometheus.Counter
	storageFailures prometheus.Counter
	restarts        prometheus.Counter
	value           prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with r.
func NewMetrics(r prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tick",
			Name:      "ticks_total",
			Help:      "Successful Count calls.",
		}),
		storageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tick",
			Name:      "storage_failures_total",
			Help:      "Store operations that failed to commit or read.",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tick",
			Name:      "restarts_total",
			Help:      "Service instances replaced by the supervisor.",
		}),
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tick",
			Name:      "counter_value",
			Help:      "Counter value returned by the most recent Count.",
		}),
	}

	r.MustRegister(m.ticks, m.storageFailures, m.restarts, m.value)
	return m
}

func (m *Metrics) observe(v int64) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.value.Set(float64(v))
}

func (m *Metrics) storageFailure() {
	if m == nil {
		return
	}
	m.storageFailures.Inc()
}

func (m *Metrics) restart() {
	if m == nil {
		return
	}
	m.restarts.Inc()
}

// Package metrics exports runtime counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the runtime updates. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	WindowsOpen    prometheus.Gauge
	WindowsCreated prometheus.Counter
	WindowsClosed  prometheus.Counter
	Redraws        prometheus.Counter
	RedrawErrors   prometheus.Counter

	Ticks          prometheus.Counter
	UpdateDuration prometheus.Histogram

	BehaviorsRegistered prometheus.Gauge
	BehaviorFaults      *prometheus.CounterVec
}

// New registers the runtime collectors with reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WindowsOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "windows_open",
			Help:      "Windows currently held by the runtime",
		}),
		WindowsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_created_total",
			Help:      "Windows created",
		}),
		WindowsClosed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_closed_total",
			Help:      "Windows closed and released",
		}),
		Redraws: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redraws_total",
			Help:      "Frames presented",
		}),
		RedrawErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redraw_errors_total",
			Help:      "Redraws that failed in the graphics context",
		}),
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Behavior update passes",
		}),
		UpdateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Duration of one behavior update pass",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1},
		}),
		BehaviorsRegistered: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "behaviors_registered",
			Help:      "Behaviors in the registry",
		}),
		BehaviorFaults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "behavior_faults_total",
			Help:      "Behavior hook panics by phase",
		}, []string{"phase"}),
	}
}

func (m *Metrics) WindowCreated() {
	if m == nil {
		return
	}
	m.WindowsCreated.Inc()
	m.WindowsOpen.Inc()
}

func (m *Metrics) WindowClosed() {
	if m == nil {
		return
	}
	m.WindowsClosed.Inc()
	m.WindowsOpen.Dec()
}

func (m *Metrics) Redraw(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.RedrawErrors.Inc()
		return
	}
	m.Redraws.Inc()
}

// Tick records one update pass that took seconds.
func (m *Metrics) Tick(seconds float64) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.UpdateDuration.Observe(seconds)
}

func (m *Metrics) Registered(total int) {
	if m == nil {
		return
	}
	m.BehaviorsRegistered.Set(float64(total))
}

func (m *Metrics) Fault(phase string) {
	if m == nil {
		return
	}
	m.BehaviorFaults.WithLabelValues(phase).Inc()
}

package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons.
const (
	ReasonFiltered  = "filtered"
	ReasonThrottled = "throttled"
	ReasonNoURL     = "no_url"
	ReasonError     = "error"
)

// Metrics counts router activity. A nil *Metrics records nothing.
type Metrics struct {
	events  *prometheus.CounterVec
	dropped *prometheus.CounterVec
}

// NewMetrics registers the router counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabtrail",
			Subsystem: "router",
			Name:      "events_total",
			Help:      "Lifecycle events handled by the router.",
		}, []string{"event"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabtrail",
			Subsystem: "router",
			Name:      "dropped_total",
			Help:      "Events that did not result in a write.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) event(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}

func (m *Metrics) drop(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

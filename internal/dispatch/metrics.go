package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	StartEvents prometheus.Counter
	Deliveries  *prometheus.CounterVec
	Suppressed  prometheus.Counter
	SendSeconds prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StartEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "grebbot_start_events_total",
			Help: "Tracked-game start events handled by the dispatcher.",
		}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grebbot_deliveries_total",
			Help: "Notification delivery decisions by kind and status.",
		}, []string{"kind", "status"}),
		Suppressed: f.NewCounter(prometheus.CounterOpts{
			Name: "grebbot_cooldown_suppressed_total",
			Help: "Channel notifications suppressed by an active cooldown.",
		}),
		SendSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "grebbot_send_duration_seconds",
			Help:    "Time spent on a single platform send.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observe(d Delivery) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(d.Kind, string(d.Status)).Inc()
	if d.Status == StatusSkipped && d.Reason == ReasonCooldown {
		m.Suppressed.Inc()
	}
	if d.Status == StatusDelivered || d.Status == StatusFailed {
		m.SendSeconds.Observe(d.Took.Seconds())
	}
}

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitlist_queue_length",
			Help: "Current number of waiting parties",
		},
	)

	seatedParties = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitlist_seated_parties",
			Help: "Current number of seated parties",
		},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_operations_total",
			Help: "Total queue operations",
		},
		[]string{"operation", "status"},
	)

	observers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitlist_observers",
			Help: "Currently connected observers per view",
		},
		[]string{"view"},
	)

	broadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_broadcast_dropped_total",
			Help: "Observers dropped because their buffer was full",
		},
	)

	actualWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waitlist_actual_wait_minutes",
			Help:    "Measured time between joining and being seated",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		},
	)
)

// Monitor records waitlist metrics. A nil *Monitor is valid and records nothing.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackQueueOperation(operation, status string) {
	if m == nil {
		return
	}
	queueOperations.WithLabelValues(operation, status).Inc()
}

func (m *Monitor) SetQueueSizes(waiting, seated int) {
	if m == nil {
		return
	}
	queueLength.Set(float64(waiting))
	seatedParties.Set(float64(seated))
}

func (m *Monitor) ObserverConnected(view string) {
	if m == nil {
		return
	}
	observers.WithLabelValues(view).Inc()
}

func (m *Monitor) ObserverDisconnected(view string) {
	if m == nil {
		return
	}
	observers.WithLabelValues(view).Dec()
}

func (m *Monitor) TrackBroadcastDrop() {
	if m == nil {
		return
	}
	broadcastDropped.Inc()
}

func (m *Monitor) ObserveActualWait(minutes float64) {
	if m == nil {
		return
	}
	actualWait.Observe(minutes)
}

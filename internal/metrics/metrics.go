package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	LockOperationsTotal *prometheus.CounterVec
	PushTotal           *prometheus.CounterVec
	LocksHeld           prometheus.Gauge
	WaitingRequesters   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		LockOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camera_lock_operations_total",
			Help: "total number of camera lock operations",
		}, []string{"operation", "outcome"}),
		PushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camera_push_notifications_total",
			Help: "total number of dispatched camera push notifications",
		}, []string{"action", "status"}),
		LocksHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camera_locks_held",
			Help: "number of cameras currently locked",
		}),
		WaitingRequesters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camera_waiting_requesters",
			Help: "number of requesters waiting for a camera",
		}),
	}

	metrics.Enable(reg)
	return metrics
}

func (m *Metrics) Enable(reg prometheus.Registerer) {
	reg.MustRegister(m.LockOperationsTotal)
	reg.MustRegister(m.PushTotal)
	reg.MustRegister(m.LocksHeld)
	reg.MustRegister(m.WaitingRequesters)
}

func (m *Metrics) Disable(reg prometheus.Registerer) {
	reg.Unregister(m.LockOperationsTotal)
	reg.Unregister(m.PushTotal)
	reg.Unregister(m.LocksHeld)
	reg.Unregister(m.WaitingRequesters)
}

// ObserveOperation is safe to call on a nil receiver.
func (m *Metrics) ObserveOperation(operation string, outcome string) {
	if m == nil {
		return
	}
	m.LockOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObservePush(action string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.PushTotal.WithLabelValues(action, status).Inc()
}

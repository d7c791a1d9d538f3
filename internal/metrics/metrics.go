// Package metrics exposes Prometheus instruments for the allocation core.
// Every method is safe on a nil *Metrics, so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hostel"

// Metrics groups the instruments.
type Metrics struct {
	assignments        *prometheus.CounterVec
	unassigned         *prometheus.GaugeVec
	allocationDuration *prometheus.HistogramVec
	deallocations      prometheus.Counter
	capacityConflicts  prometheus.Counter
	swapTransitions    *prometheus.CounterVec
	waitlistRaised     prometheus.Counter
	notifications      *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Occupants assigned to a room, by room type.",
		}, []string{"room_type"}),
		unassigned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unassigned_candidates",
			Help:      "Candidates left waiting after the last allocation run, by room type.",
		}, []string{"room_type"}),
		allocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_run_seconds",
			Help:      "Duration of allocation runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"room_type"}),
		deallocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deallocations_total",
			Help:      "Occupants removed from their room.",
		}),
		capacityConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_conflicts_total",
			Help:      "Assignments that lost a race for the last slot of a room.",
		}),
		swapTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_transitions_total",
			Help:      "Swap requests entering a status.",
		}, []string{"status"}),
		waitlistRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waitlist_scores_raised_total",
			Help:      "Waitlist priority scores raised by scheduled recomputation.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Push notifications sent, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.assignments,
		m.unassigned,
		m.allocationDuration,
		m.deallocations,
		m.capacityConflicts,
		m.swapTransitions,
		m.waitlistRaised,
		m.notifications,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAllocation(roomType string, assigned, unassigned int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(roomType).Add(float64(assigned))
	m.unassigned.WithLabelValues(roomType).Set(float64(unassigned))
	m.allocationDuration.WithLabelValues(roomType).Observe(elapsed.Seconds())
}

func (m *Metrics) IncDeallocation() {
	if m == nil {
		return
	}
	m.deallocations.Inc()
}

func (m *Metrics) IncCapacityConflict() {
	if m == nil {
		return
	}
	m.capacityConflicts.Inc()
}

func (m *Metrics) IncSwapTransition(status string) {
	if m == nil {
		return
	}
	m.swapTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) AddScoresRaised(n int) {
	if m == nil {
		return
	}
	m.waitlistRaised.Add(float64(n))
}

func (m *Metrics) IncNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

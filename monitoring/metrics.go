package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Total booking lifecycle operations",
		},
		[]string{"operation", "status"},
	)

	gatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Total calls to the payment gateway",
		},
		[]string{"operation", "status"},
	)

	assignmentRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assignment_run_duration_seconds",
			Help:    "Duration of meeting point reassignment runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"status"},
	)
)

// TrackBookingOperation counts one lifecycle operation (create, confirm,
// cancel, validate) with its outcome.
func TrackBookingOperation(operation, status string) {
	bookingOperations.WithLabelValues(operation, status).Inc()
}

// TrackGatewayCall counts one outbound gateway call with its outcome.
func TrackGatewayCall(operation, status string) {
	gatewayCalls.WithLabelValues(operation, status).Inc()
}

// ObserveAssignmentRun records how long a reassignment run took.
func ObserveAssignmentRun(d time.Duration, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	assignmentRunDuration.WithLabelValues(status).Observe(d.Seconds())
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citas",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingResult = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citas",
			Name:      "booking_result_total",
			Help:      "Count of booking attempts by result.",
		},
		[]string{"result"},
	)

	gatewayFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citas",
			Name:      "gateway_failure_total",
			Help:      "Count of failed calls to external targets by target and kind.",
		},
		[]string{"target", "kind"},
	)

	degradedReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citas",
			Name:      "degraded_read_total",
			Help:      "Count of availability reads that degraded to empty data by source.",
		},
		[]string{"source"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingResult, gatewayFailure, degradedReads)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingResult(result string) {
	bookingResult.WithLabelValues(result).Inc()
}

func IncGatewayFailure(target, kind string) {
	gatewayFailure.WithLabelValues(target, kind).Inc()
}

func IncDegradedRead(source string) {
	degradedReads.WithLabelValues(source).Inc()
}

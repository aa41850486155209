package httpapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP metrics of the query server.
type Metrics struct {
	// Requests by route pattern, method, and status code
	Requests *prometheus.CounterVec

	// Handler latency by route pattern
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the HTTP metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landledger_http_requests_total",
			Help: "Total HTTP requests by route, method, and status code",
		}, []string{"route", "method", "code"}),

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "landledger_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(route, method, code string, d time.Duration) {
	if m != nil {
		m.Requests.WithLabelValues(route, method, code).Inc()
		m.Duration.WithLabelValues(route).Observe(d.Seconds())
	}
}

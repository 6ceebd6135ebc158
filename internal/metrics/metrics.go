package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh cycle metrics
var (
	// RefreshCycles counts refresh cycles by outcome and failing stage
	RefreshCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tadoif_refresh_cycles_total",
			Help: "Total refresh cycles by status and stage",
		},
		[]string{"status", "stage"},
	)

	// RefreshDuration tracks how long a full cycle takes
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tadoif_refresh_duration_seconds",
			Help:    "Refresh cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// LastPublished is the Unix time of the last published snapshot
	LastPublished = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tadoif_last_published_timestamp_seconds",
			Help: "Unix time of the most recently published snapshot",
		},
	)

	// Zones is the zone count of the published snapshot
	Zones = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tadoif_zones",
			Help: "Number of zones in the published snapshot",
		},
	)
)

// D-Bus request metrics
var (
	// BusRequests counts method calls served by the responder
	BusRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tadoif_bus_requests_total",
			Help: "Total D-Bus method calls by method and status",
		},
		[]string{"method", "status"},
	)
)

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RecordCycle records the outcome of one refresh cycle. stage is empty on success.
func RecordCycle(stage string, duration time.Duration, err error) {
	RefreshDuration.Observe(duration.Seconds())
	if err != nil {
		RefreshCycles.WithLabelValues(StatusError, stage).Inc()
		return
	}
	RefreshCycles.WithLabelValues(StatusSuccess, "").Inc()
}

// RecordPublish records a newly published snapshot
func RecordPublish(at time.Time, zones int) {
	LastPublished.Set(float64(at.Unix()))
	Zones.Set(float64(zones))
}

// RecordBusRequest records one D-Bus method call
func RecordBusRequest(method string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	BusRequests.WithLabelValues(method, status).Inc()
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}

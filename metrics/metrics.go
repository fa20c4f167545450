// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/synaptecltd/relay"
)

var (
	registerOnce sync.Once

	cycleRMS = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "measurement",
			Name:      "rms_amperes",
			Help:      "RMS primary current of the last full cycle.",
		},
	)
	evaluations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "protection",
			Name:      "evaluations_total",
			Help:      "Full cycles evaluated by the protection functions.",
		},
	)
	results = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "protection",
			Name:      "results_total",
			Help:      "Protection function results by function and result kind.",
		},
		[]string{"function", "result"},
	)
	tripped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "protection",
			Name:      "tripped",
			Help:      "1 if the last evaluation tripped, 0 otherwise.",
		},
	)
	gooseMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "goose",
			Name:      "messages_total",
			Help:      "GOOSE trip messages handed to the transport.",
		},
		[]string{"success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	gooseStNum = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "goose",
			Name:      "st_num",
			Help:      "State number of the last GOOSE trip message.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(cycleRMS, evaluations, results, tripped, gooseMessages, gooseStNum, httpRequests, httpDuration)
	})
}

// RecordEvaluation records one cycle. names maps container keys to function
// names; keys missing from names are used as the label directly.
func RecordEvaluation(evaluation relay.Evaluation, names map[string]string) {
	RegisterMetrics()
	cycleRMS.Set(evaluation.RMS)
	evaluations.Inc()
	for key, result := range evaluation.Results {
		name, ok := names[key]
		if !ok {
			name = key
		}
		results.WithLabelValues(name, result.Kind.String()).Inc()
	}
	if evaluation.Trip {
		tripped.Set(1)
	} else {
		tripped.Set(0)
	}
}

// RecordGooseMessage records one publish attempt and the resulting stNum.
func RecordGooseMessage(stNum uint32, err error) {
	RegisterMetrics()
	success := "true"
	if err != nil {
		success = "false"
	}
	gooseMessages.WithLabelValues(success).Inc()
	gooseStNum.Set(float64(stNum))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

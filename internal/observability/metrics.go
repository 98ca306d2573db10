// Package observability exports the fieldreport Prometheus metrics and a
// bridge from the core service's metrics hook onto them.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fieldreport",
		Subsystem: "service",
		Name:      "operation_duration_seconds",
		Help:      "Duration of core service operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	savesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldreport",
		Subsystem: "records",
		Name:      "saves_total",
		Help:      "Record saves by landing outcome (success=cloud, local=device fallback).",
	}, []string{"outcome"})

	uploadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldreport",
		Subsystem: "reports",
		Name:      "archival_upload_failures_total",
		Help:      "Report archive uploads that failed and were swallowed.",
	})
)

func init() {
	prometheus.MustRegister(operationDuration, savesTotal, uploadFailuresTotal)
}

// RecordSaveOutcome counts a completed save by where it landed.
func RecordSaveOutcome(outcome string) {
	if outcome == "" {
		return
	}
	savesTotal.WithLabelValues(outcome).Inc()
}

// RecordUploadFailure counts one swallowed archival upload failure.
func RecordUploadFailure() {
	uploadFailuresTotal.Inc()
}

// Recorder adapts the Prometheus metrics to the core service's metrics hook.
type Recorder struct{}

// NewRecorder returns the Prometheus-backed recorder.
func NewRecorder() Recorder { return Recorder{} }

// Observe records one service operation.
func (Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "error"
	if success {
		status = "success"
	}
	operationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

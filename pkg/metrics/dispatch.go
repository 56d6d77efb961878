package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records per-platform conversion dispatch outcomes.
type DispatchMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewDispatchMetrics registers the conversion dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conversion_dispatch_duration_seconds",
		Help:    "Duration of conversion uploads per ad platform.",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conversion_dispatch_total",
		Help: "Conversion dispatch attempts by platform and outcome.",
	}, []string{"platform", "outcome"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conversion_dispatch_skipped_total",
		Help: "Dispatches skipped because platform credentials are not configured.",
	}, []string{"platform"})
	reg.MustRegister(duration, outcomes, skipped)
	return &DispatchMetrics{
		duration: duration,
		outcomes: outcomes,
		skipped:  skipped,
	}
}

// ObserveDuration records how long a platform upload took.
func (d *DispatchMetrics) ObserveDuration(platform string, duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.WithLabelValues(normalizeLabel(platform)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named platform.
func (d *DispatchMetrics) IncSuccess(platform string) {
	if d == nil || d.outcomes == nil {
		return
	}
	d.outcomes.WithLabelValues(normalizeLabel(platform), "success").Inc()
}

// IncFailure increments the failure counter for the named platform.
func (d *DispatchMetrics) IncFailure(platform string) {
	if d == nil || d.outcomes == nil {
		return
	}
	d.outcomes.WithLabelValues(normalizeLabel(platform), "failure").Inc()
}

// IncSkipped increments the credentials-not-configured counter for the named platform.
func (d *DispatchMetrics) IncSkipped(platform string) {
	if d == nil || d.skipped == nil {
		return
	}
	d.skipped.WithLabelValues(normalizeLabel(platform)).Inc()
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics to analyze how much work
// rate controllers actually suppress.
type MetricsCollector interface {
	// IncInvoked increments the total number of Invoke calls.
	IncInvoked(mode Mode)

	// IncFired increments the total number of callback runs.
	IncFired(mode Mode)

	// IncSuppressed increments the total number of suppressed invocations
	// (discarded by a throttler or replaced by a newer debounced one).
	IncSuppressed(mode Mode)

	// IncCanceled increments the total number of canceled pending invocations.
	IncCanceled(mode Mode)
}

const metricsLabelMode = "mode"

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string
}

// PrometheusMetrics represents a Prometheus metrics for rate controllers.
type PrometheusMetrics struct {
	InvocationsTotal   *prometheus.CounterVec
	FiresTotal         *prometheus.CounterVec
	SuppressionsTotal  *prometheus.CounterVec
	CancellationsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	labelNames := append([]string{metricsLabelMode}, opts.CurriedLabelNames...)

	invocationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "rate_control_invocations_total",
			Help:        "Number of Invoke calls.",
			ConstLabels: opts.ConstLabels,
		},
		labelNames,
	)

	firesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "rate_control_fires_total",
			Help:        "Number of callback runs.",
			ConstLabels: opts.ConstLabels,
		},
		labelNames,
	)

	suppressionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "rate_control_suppressions_total",
			Help:        "Number of suppressed invocations.",
			ConstLabels: opts.ConstLabels,
		},
		labelNames,
	)

	cancellationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "rate_control_cancellations_total",
			Help:        "Number of canceled pending invocations.",
			ConstLabels: opts.ConstLabels,
		},
		labelNames,
	)

	return &PrometheusMetrics{
		InvocationsTotal:   invocationsTotal,
		FiresTotal:         firesTotal,
		SuppressionsTotal:  suppressionsTotal,
		CancellationsTotal: cancellationsTotal,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		InvocationsTotal:   pm.InvocationsTotal.MustCurryWith(labels),
		FiresTotal:         pm.FiresTotal.MustCurryWith(labels),
		SuppressionsTotal:  pm.SuppressionsTotal.MustCurryWith(labels),
		CancellationsTotal: pm.CancellationsTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.InvocationsTotal,
		pm.FiresTotal,
		pm.SuppressionsTotal,
		pm.CancellationsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.InvocationsTotal)
	prometheus.Unregister(pm.FiresTotal)
	prometheus.Unregister(pm.SuppressionsTotal)
	prometheus.Unregister(pm.CancellationsTotal)
}

// IncInvoked increments the total number of Invoke calls.
func (pm *PrometheusMetrics) IncInvoked(mode Mode) {
	pm.InvocationsTotal.With(prometheus.Labels{metricsLabelMode: mode.String()}).Inc()
}

// IncFired increments the total number of callback runs.
func (pm *PrometheusMetrics) IncFired(mode Mode) {
	pm.FiresTotal.With(prometheus.Labels{metricsLabelMode: mode.String()}).Inc()
}

// IncSuppressed increments the total number of suppressed invocations.
func (pm *PrometheusMetrics) IncSuppressed(mode Mode) {
	pm.SuppressionsTotal.With(prometheus.Labels{metricsLabelMode: mode.String()}).Inc()
}

// IncCanceled increments the total number of canceled pending invocations.
func (pm *PrometheusMetrics) IncCanceled(mode Mode) {
	pm.CancellationsTotal.With(prometheus.Labels{metricsLabelMode: mode.String()}).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncInvoked(Mode)    {}
func (disabledMetrics) IncFired(Mode)      {}
func (disabledMetrics) IncSuppressed(Mode) {}
func (disabledMetrics) IncCanceled(Mode)   {}

var disabledMetricsCollector = disabledMetrics{}

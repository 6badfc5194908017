/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package notify

import "github.com/prometheus/client_golang/prometheus"

// RemovalReason tells why a notification was removed.
type RemovalReason string

// Removal reasons.
const (
	// RemovalReasonDismissed means the notification was removed by Dismiss.
	RemovalReasonDismissed RemovalReason = "dismissed"

	// RemovalReasonExpired means the notification was removed by its
	// auto-dismiss timer.
	RemovalReasonExpired RemovalReason = "expired"

	// RemovalReasonCleared means the notification was removed by Clear.
	RemovalReasonCleared RemovalReason = "cleared"
)

// MetricsCollector represents a collector of metrics to analyze how
// notifications are produced and removed.
type MetricsCollector interface {
	// IncCreated increments the total number of created notifications.
	IncCreated(kind Kind)

	// IncRemoved increments the total number of removed notifications.
	IncRemoved(kind Kind, reason RemovalReason)

	// SetActive sets the number of currently live notifications.
	SetActive(count int)
}

const (
	metricsLabelKind   = "kind"
	metricsLabelReason = "reason"
)

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

// PrometheusMetrics represents a Prometheus metrics for the notification center.
type PrometheusMetrics struct {
	CreatedTotal *prometheus.CounterVec
	RemovedTotal *prometheus.CounterVec
	ActiveAmount *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	createdTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "notifications_created_total",
			Help:        "Number of created notifications.",
			ConstLabels: opts.ConstLabels,
		},
		append([]string{metricsLabelKind}, opts.CurriedLabelNames...),
	)

	removedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "notifications_removed_total",
			Help:        "Number of removed notifications.",
			ConstLabels: opts.ConstLabels,
		},
		append([]string{metricsLabelKind, metricsLabelReason}, opts.CurriedLabelNames...),
	)

	activeAmount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "notifications_active_amount",
			Help:        "Number of currently live notifications.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		CreatedTotal: createdTotal,
		RemovedTotal: removedTotal,
		ActiveAmount: activeAmount,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		CreatedTotal: pm.CreatedTotal.MustCurryWith(labels),
		RemovedTotal: pm.RemovedTotal.MustCurryWith(labels),
		ActiveAmount: pm.ActiveAmount.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.CreatedTotal,
		pm.RemovedTotal,
		pm.ActiveAmount,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.CreatedTotal)
	prometheus.Unregister(pm.RemovedTotal)
	prometheus.Unregister(pm.ActiveAmount)
}

// IncCreated increments the total number of created notifications.
func (pm *PrometheusMetrics) IncCreated(kind Kind) {
	pm.CreatedTotal.With(prometheus.Labels{metricsLabelKind: string(kind)}).Inc()
}

// IncRemoved increments the total number of removed notifications.
func (pm *PrometheusMetrics) IncRemoved(kind Kind, reason RemovalReason) {
	pm.RemovedTotal.With(prometheus.Labels{
		metricsLabelKind:   string(kind),
		metricsLabelReason: string(reason),
	}).Inc()
}

// SetActive sets the number of currently live notifications.
func (pm *PrometheusMetrics) SetActive(count int) {
	pm.ActiveAmount.With(nil).Set(float64(count))
}

type disabledMetrics struct{}

func (disabledMetrics) IncCreated(Kind)                {}
func (disabledMetrics) IncRemoved(Kind, RemovalReason) {}
func (disabledMetrics) SetActive(int)                  {}

var disabledMetricsCollector = disabledMetrics{}

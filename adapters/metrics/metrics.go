// Package metrics provides Prometheus metrics for the refresh pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics.
type Collector struct {
	// Refresh cycle metrics
	RefreshCycles   *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	LastRefresh     prometheus.Gauge

	// Rate limit metrics
	RateLimitDeferrals prometheus.Counter
	BackoffAttempt     prometheus.Gauge

	// Notification metrics
	Notifications           *prometheus.CounterVec
	NotificationsSuppressed *prometheus.CounterVec

	// Usage gauges
	BudgetPercent   prometheus.Gauge
	IncludedPercent prometheus.Gauge
	SpendUSD        prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a collector on a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newWith(promauto.With(reg))
}

func newWith(factory promauto.Factory) *Collector {
	return &Collector{
		RefreshCycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quotawatch",
				Name:      "refresh_cycles_total",
				Help:      "Refresh cycles by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "quotawatch",
				Name:      "refresh_duration_seconds",
				Help:      "Duration of one fetch+compute+notify cycle",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		LastRefresh: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "quotawatch",
				Name:      "last_refresh_timestamp",
				Help:      "Unix timestamp of the last successful refresh",
			},
		),
		RateLimitDeferrals: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "quotawatch",
				Name:      "rate_limit_deferrals_total",
				Help:      "Timer refreshes deferred by rate limiting",
			},
		),
		BackoffAttempt: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "quotawatch",
				Name:      "backoff_attempt",
				Help:      "Current rate-limit backoff attempt counter",
			},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quotawatch",
				Name:      "notifications_total",
				Help:      "Notifications delivered by metric and level",
			},
			[]string{"metric", "level"},
		),
		NotificationsSuppressed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quotawatch",
				Name:      "notifications_suppressed_total",
				Help:      "Notifications suppressed by reason",
			},
			[]string{"reason"},
		),
		BudgetPercent: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "quotawatch",
				Name:      "budget_percent",
				Help:      "Current budget usage percent",
			},
		),
		IncludedPercent: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "quotawatch",
				Name:      "included_percent",
				Help:      "Current included quota usage percent",
			},
		),
		SpendUSD: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "quotawatch",
				Name:      "spend_usd",
				Help:      "Current period spend in USD",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "quotawatch",
				Name:      "config_reloads_total",
				Help:      "Successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "quotawatch",
				Name:      "config_reload_errors_total",
				Help:      "Failed config reloads",
			},
		),
	}
}

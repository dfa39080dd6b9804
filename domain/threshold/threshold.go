// Package threshold implements the notification state machine for upward
// threshold crossings. All functions are pure; wall-clock time is part of
// the input, never read internally.
package threshold

import (
	"fmt"
	"math"
	"time"

	"github.com/quotawatch/quotawatch/domain/billing"
)

// Metric identifies which percentage a threshold state tracks.
type Metric string

const (
	MetricBudget   Metric = "budget"
	MetricIncluded Metric = "included"
)

// Level is the last-notified severity for a (period, metric) pair.
type Level string

const (
	LevelNone   Level = "none"
	LevelWarn   Level = "warn"
	LevelDanger Level = "danger"
)

// Rank orders levels for the upward-only transition rule:
// none < warn < danger.
func (l Level) Rank() int {
	switch l {
	case LevelWarn:
		return 1
	case LevelDanger:
		return 2
	default:
		return 0
	}
}

// DefaultCooldown bounds notification frequency per (period, metric).
const DefaultCooldown = 6 * time.Hour

// State is the persisted bookkeeping for one (period, metric) pair.
// It is replaced wholesale on every evaluation, never partially updated.
type State struct {
	Period       billing.Period `json:"period"`
	Metric       Metric         `json:"metric"`
	Level        Level          `json:"level"`
	LastNotifyAt *time.Time     `json:"last_notify_at,omitempty"`
	LastPercent  float64        `json:"last_percent"`
}

// StateKey serializes a (period, metric) pair to the stable string used
// as the persistence key, e.g. "2025-10.budget".
func StateKey(period billing.Period, metric Metric) string {
	return fmt.Sprintf("%s.%s", period.Key(), metric)
}

// Input carries everything one evaluation depends on.
type Input struct {
	Period               billing.Period
	Metric               Metric
	Percent              float64 // already clamped to [0,100] by the caller
	WarnAtPercent        float64 // 0 disables
	DangerAtPercent      float64 // 0 disables
	NotificationsEnabled bool
	Now                  time.Time
	// Detail is an optional human-readable amount string included in the
	// notification body, e.g. "$12.34 / $20.00".
	Detail string
	// IdentifierPrefix namespaces notification identifiers per application.
	IdentifierPrefix string
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Notify     bool
	Level      Level
	Identifier string
	Title      string
	Body       string
}

// Evaluate runs the crossing state machine for one observation and returns
// the replacement state plus the notification decision.
//
// The first observation for a (period, metric) pair only establishes a
// baseline; it never notifies, so a month rollover cannot fire a spurious
// alert even when usage is already above a threshold. Notifications fire
// only on upward level transitions (none < warn < danger), and even then a
// cooldown since the last delivery suppresses the message while the level
// still advances.
func Evaluate(in Input, prev *State, cooldown time.Duration) (State, Decision) {
	percent := clamp(in.Percent)

	if prev == nil || prev.Period != in.Period || prev.Metric != in.Metric {
		return State{
			Period:      in.Period,
			Metric:      in.Metric,
			Level:       LevelNone,
			LastPercent: percent,
		}, Decision{Level: LevelNone}
	}

	warnAt, dangerAt := normalizeThresholds(in.WarnAtPercent, in.DangerAtPercent)

	if !in.NotificationsEnabled || (warnAt <= 0 && dangerAt <= 0) {
		next := *prev
		next.LastPercent = percent
		return next, Decision{Level: prev.Level}
	}

	level := classify(percent, warnAt, dangerAt)

	next := State{
		Period:       in.Period,
		Metric:       in.Metric,
		Level:        level,
		LastNotifyAt: prev.LastNotifyAt,
		LastPercent:  percent,
	}

	if level.Rank() <= prev.Level.Rank() {
		return next, Decision{Level: level}
	}

	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if prev.LastNotifyAt != nil && in.Now.Sub(*prev.LastNotifyAt) < cooldown {
		// Level advances; only the delivery is suppressed.
		return next, Decision{Level: level}
	}

	notifyAt := in.Now
	next.LastNotifyAt = &notifyAt

	crossed := warnAt
	if level == LevelDanger {
		crossed = dangerAt
	}

	return next, Decision{
		Notify:     true,
		Level:      level,
		Identifier: Identifier(in.IdentifierPrefix, in.Period, in.Metric, level),
		Title:      title(in.Metric, level, percent),
		Body:       body(in.Metric, percent, crossed, in.Detail, in.Period),
	}
}

// Identifier builds the deterministic notification identifier
// "{prefix}.{year}-{month}.{metric}.{level}", collision-free per
// (period, metric, level) so the sink can replace rather than stack.
func Identifier(prefix string, period billing.Period, metric Metric, level Level) string {
	return fmt.Sprintf("%s.%s.%s.%s", prefix, period.Key(), metric, level)
}

func title(metric Metric, level Level, percent float64) string {
	word := "Warning"
	if level == LevelDanger {
		word = "Danger"
	}
	return fmt.Sprintf("%s: %s usage at %.0f%%", word, metric, math.Round(percent))
}

func body(metric Metric, percent, crossed float64, detail string, period billing.Period) string {
	b := fmt.Sprintf("%s usage reached %.0f%% (threshold %.0f%%)", metric, math.Round(percent), crossed)
	if detail != "" {
		b += ", " + detail
	}
	return b + " (" + period.Label() + ")"
}

func classify(percent, warnAt, dangerAt float64) Level {
	switch {
	case dangerAt > 0 && percent >= dangerAt:
		return LevelDanger
	case warnAt > 0 && percent >= warnAt:
		return LevelWarn
	default:
		return LevelNone
	}
}

// normalizeThresholds defends against a misconfigured warn > danger by
// swapping rather than rejecting.
func normalizeThresholds(warnAt, dangerAt float64) (float64, float64) {
	if warnAt > 0 && dangerAt > 0 && warnAt > dangerAt {
		return dangerAt, warnAt
	}
	return warnAt, dangerAt
}

func clamp(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

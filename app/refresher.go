// Package app contains the refresh orchestrator: it owns timing, invokes
// the usage source, feeds results through the pure computation and
// threshold layers, and publishes the outcome to observers.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quotawatch/quotawatch/adapters/github"
	"github.com/quotawatch/quotawatch/adapters/metrics"
	"github.com/quotawatch/quotawatch/config"
	"github.com/quotawatch/quotawatch/domain/billing"
	"github.com/quotawatch/quotawatch/domain/plan"
	"github.com/quotawatch/quotawatch/domain/threshold"
	"github.com/quotawatch/quotawatch/domain/usage"
	"github.com/quotawatch/quotawatch/ports"
	"github.com/rs/zerolog"
)

// Trigger identifies what started a refresh cycle.
type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerManual  Trigger = "manual"
	TriggerTimer   Trigger = "timer"
)

// Outcome classifies how a refresh cycle ended.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeError         Outcome = "error"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeNoCredentials Outcome = "no_credentials"
	// OutcomeRejected means the trigger was refused before any work
	// started (already refreshing, manual cooldown, active deferral).
	OutcomeRejected Outcome = "rejected"
)

// Event is published to observers after every completed or rejected cycle.
type Event struct {
	Trigger Trigger
	Outcome Outcome
	View    *usage.ViewState
	Err     error
}

// RefreshState is the process-lifetime scheduler state, exposed for
// observability. It is never persisted.
type RefreshState struct {
	IsRefreshing           bool       `json:"is_refreshing"`
	ManualCooldownSeconds  int64      `json:"manual_cooldown_seconds"`
	BackoffAttempt         int        `json:"backoff_attempt"`
	NextAllowedAutoRefresh *time.Time `json:"next_allowed_auto_refresh,omitempty"`
}

// Scheduler serializes all refresh cycles. At most one fetch+compute+notify
// cycle is in flight; concurrent triggers are rejected outright, never
// queued, so no two cycles ever interleave.
type Scheduler struct {
	source ports.UsageSource
	creds  ports.CredentialProvider
	sink   ports.NotificationSink
	store  ports.StateStore
	clock  ports.Clock
	holder *config.Holder
	logger zerolog.Logger
	coll   *metrics.Collector

	mu            sync.Mutex
	refreshing    bool
	manualReadyAt time.Time
	attempt       int
	nextAllowedAt time.Time
	view          *usage.ViewState
	subscribers   []func(Event)

	intervalCh chan time.Duration
}

// SchedulerConfig carries the scheduler's collaborators.
type SchedulerConfig struct {
	Source  ports.UsageSource
	Creds   ports.CredentialProvider
	Sink    ports.NotificationSink
	Store   ports.StateStore
	Clock   ports.Clock
	Holder  *config.Holder
	Logger  zerolog.Logger
	Metrics *metrics.Collector
}

// NewScheduler creates a scheduler. The last persisted view state, if any,
// is restored as stale so a restarted process shows data before its first
// fetch completes.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		source:     cfg.Source,
		creds:      cfg.Creds,
		sink:       cfg.Sink,
		store:      cfg.Store,
		clock:      cfg.Clock,
		holder:     cfg.Holder,
		logger:     cfg.Logger.With().Str("component", "scheduler").Logger(),
		coll:       cfg.Metrics,
		intervalCh: make(chan time.Duration, 1),
	}

	if s.store != nil {
		if vs, err := s.store.LoadViewState(context.Background()); err == nil && vs != nil {
			stale := *vs
			stale.Health = usage.HealthStale
			s.view = &stale
		}
	}

	return s
}

// Subscribe registers an observer invoked synchronously after each cycle.
func (s *Scheduler) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// View returns the current view state, or nil before the first data.
func (s *Scheduler) View() *usage.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil
	}
	cp := *s.view
	return &cp
}

// State returns a snapshot of the process-lifetime refresh state.
func (s *Scheduler) State() RefreshState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Scheduler) stateLocked() RefreshState {
	now := s.clock.Now()
	st := RefreshState{
		IsRefreshing:   s.refreshing,
		BackoffAttempt: s.attempt,
	}
	if remaining := s.manualReadyAt.Sub(now); remaining > 0 {
		st.ManualCooldownSeconds = int64(remaining.Seconds() + 0.5)
	}
	if s.nextAllowedAt.After(now) {
		t := s.nextAllowedAt
		st.NextAllowedAutoRefresh = &t
	}
	return st
}

// SetInterval re-arms the periodic timer. Wired to config hot reload.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case s.intervalCh <- d:
	default:
	}
}

// Run drives the periodic refresh loop until ctx is cancelled. The startup
// trigger fires immediately regardless of cooldown or backoff state.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Refresh(ctx, TriggerStartup)

	interval := s.holder.Get().Refresh.Interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-s.intervalCh:
			if d != interval {
				s.logger.Info().Stringer("old", interval).Stringer("new", d).Msg("re-arming refresh timer")
				interval = d
				ticker.Reset(d)
			}
		case <-ticker.C:
			s.Refresh(ctx, TriggerTimer)
		}
	}
}

// Refresh runs one fetch+compute+notify cycle for the given trigger and
// returns how it ended. Rejections return immediately without touching
// any state beyond the manual cooldown bookkeeping.
func (s *Scheduler) Refresh(ctx context.Context, trigger Trigger) Outcome {
	cycle := uuid.NewString()
	log := s.logger.With().Str("cycle", cycle).Str("trigger", string(trigger)).Logger()

	if !s.begin(trigger, log) {
		s.count(trigger, OutcomeRejected)
		s.publish(Event{Trigger: trigger, Outcome: OutcomeRejected})
		return OutcomeRejected
	}

	started := s.clock.Now()
	outcome, view, err := s.cycle(ctx, trigger, log)
	s.finish(outcome, view, err, started)

	s.count(trigger, outcome)
	s.publish(Event{Trigger: trigger, Outcome: outcome, View: s.View(), Err: err})
	return outcome
}

// begin applies the trigger acceptance rules under the lock and marks the
// scheduler refreshing on acceptance.
func (s *Scheduler) begin(trigger Trigger, log zerolog.Logger) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	if s.refreshing {
		log.Debug().Msg("refresh already in flight, trigger rejected")
		return false
	}

	switch trigger {
	case TriggerManual:
		if s.manualReadyAt.After(now) {
			log.Debug().Dur("remaining", s.manualReadyAt.Sub(now)).Msg("manual cooldown active, trigger rejected")
			return false
		}
		if s.nextAllowedAt.After(now) {
			log.Debug().Time("next_allowed", s.nextAllowedAt).Msg("rate limit deferral active, manual trigger rejected")
			return false
		}
		// Debounce further manual triggers as soon as this one is accepted.
		s.manualReadyAt = now.Add(s.holder.Get().Refresh.ManualCooldown)
	case TriggerTimer:
		if s.nextAllowedAt.After(now) {
			log.Debug().Time("next_allowed", s.nextAllowedAt).Msg("rate limit deferral active, timer tick skipped")
			return false
		}
	case TriggerStartup:
		// First data must be fetched as soon as possible.
	}

	s.refreshing = true
	return true
}

// cycle performs the fetch+compute+notify work. It runs outside the lock;
// mutual exclusion is guaranteed by the refreshing flag.
func (s *Scheduler) cycle(ctx context.Context, trigger Trigger, log zerolog.Logger) (Outcome, *usage.ViewState, error) {
	cfg := s.holder.Get()
	prefs := cfg.Preferences()
	prefs.IncludedOverride = plan.ResolveIncluded(cfg.Catalog(), prefs.SelectedPlan, prefs.IncludedOverride)

	now := s.clock.Now()
	period := billing.PeriodOf(now)

	token, ok := s.creds.Token()
	if !ok {
		// Not an error: show an empty state and try again next cycle.
		log.Debug().Msg("no credential available, skipping fetch")
		empty := usage.ViewState{
			Period:    period,
			Health:    usage.HealthStale,
			LastError: "no credential configured",
		}
		return OutcomeNoCredentials, &empty, nil
	}

	timeout := cfg.GitHub.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	report, err := s.source.FetchUsage(fetchCtx, token, period)
	cancel()
	if err != nil {
		return s.classifyFailure(trigger, err, log), nil, err
	}

	summary := billing.Summarize(report.Items, prefs.Product)
	view := usage.ComputeViewState(period, summary, prefs, s.clock.Now(), "")

	log.Info().
		Str("login", report.Login).
		Float64("spend_usd", view.SpendUSD).
		Int64("included_used", view.IncludedUsed).
		Int64("included_total", view.IncludedTotal).
		Str("phase", string(view.Phase)).
		Msg("usage refreshed")

	if prefs.IncludedOverride == 0 && summary.TotalIncludedQuantity > 0 {
		log.Debug().
			Int64("included", summary.TotalIncludedQuantity).
			Msg("included quota derived from discount heuristic (best effort)")
	}

	s.evaluateThresholds(ctx, view, prefs, cfg, log)

	if s.store != nil {
		if err := s.store.SaveViewState(ctx, view); err != nil {
			log.Warn().Err(err).Msg("persist view state failed")
		}
	}

	return OutcomeOK, &view, nil
}

// classifyFailure maps a fetch error to an outcome and advances the
// rate-limit deferral for timer triggers only: a user's explicit request
// should fail fast rather than be silently deferred.
func (s *Scheduler) classifyFailure(trigger Trigger, err error, log zerolog.Logger) Outcome {
	if resetAt, ok := github.IsRateLimited(err); ok {
		if trigger == TriggerTimer {
			s.mu.Lock()
			if s.attempt < maxAttempts {
				s.attempt++
			}
			s.nextAllowedAt = nextDeferral(s.clock.Now(), resetAt, s.attempt)
			attempt, next := s.attempt, s.nextAllowedAt
			s.mu.Unlock()

			if s.coll != nil {
				s.coll.RateLimitDeferrals.Inc()
				s.coll.BackoffAttempt.Set(float64(attempt))
			}
			log.Warn().Int("attempt", attempt).Time("next_allowed", next).Msg("rate limited, deferring auto refresh")
		} else {
			log.Warn().Msg("rate limited")
		}
		return OutcomeRateLimited
	}

	log.Warn().Str("kind", string(github.KindOf(err))).Err(err).Msg("refresh failed")
	return OutcomeError
}

// evaluateThresholds runs the crossing state machine for each metric and
// delivers/persists as decided. Store and sink failures are logged, never
// escalated.
func (s *Scheduler) evaluateThresholds(ctx context.Context, view usage.ViewState, prefs usage.Preferences, cfg *config.Config, log zerolog.Logger) {
	type metricInput struct {
		metric  threshold.Metric
		percent float64
		enabled bool
		detail  string
	}

	inputs := []metricInput{
		{
			metric:  threshold.MetricBudget,
			percent: view.BudgetPercent,
			enabled: view.BudgetUSD > 0,
			detail:  fmt.Sprintf("$%.2f / $%.2f", view.SpendUSD, view.BudgetUSD),
		},
		{
			metric:  threshold.MetricIncluded,
			percent: view.IncludedPercent,
			enabled: view.IncludedTotal > 0,
			detail:  fmt.Sprintf("%d / %d requests", view.IncludedUsed, view.IncludedTotal),
		},
	}

	for _, in := range inputs {
		if !in.enabled {
			continue
		}

		key := threshold.StateKey(view.Period, in.metric)

		var prev *threshold.State
		if s.store != nil {
			loaded, err := s.store.LoadThreshold(ctx, key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("load threshold state failed, starting from baseline")
			} else {
				prev = loaded
			}
		}

		next, decision := threshold.Evaluate(threshold.Input{
			Period:               view.Period,
			Metric:               in.metric,
			Percent:              in.percent,
			WarnAtPercent:        prefs.WarnAtPercent,
			DangerAtPercent:      prefs.DangerAtPercent,
			NotificationsEnabled: prefs.NotificationsEnabled,
			Now:                  s.clock.Now(),
			Detail:               in.detail,
			IdentifierPrefix:     cfg.Notifications.IdentifierPrefix,
		}, prev, cfg.Thresholds.Cooldown)

		if decision.Notify {
			if err := s.sink.Post(ctx, decision.Identifier, decision.Title, decision.Body); err != nil {
				log.Warn().Err(err).Str("identifier", decision.Identifier).Msg("notification delivery failed")
			} else if s.coll != nil {
				s.coll.Notifications.WithLabelValues(string(in.metric), string(decision.Level)).Inc()
			}
		} else if prev != nil && decision.Level.Rank() > prev.Level.Rank() {
			if s.coll != nil {
				s.coll.NotificationsSuppressed.WithLabelValues("cooldown").Inc()
			}
		}

		if s.store != nil {
			if err := s.store.SaveThreshold(ctx, key, next); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("persist threshold state failed")
			}
		}
	}
}

// finish marshals the cycle result back into the owner state.
func (s *Scheduler) finish(outcome Outcome, view *usage.ViewState, cycleErr error, started time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshing = false

	switch outcome {
	case OutcomeOK:
		s.attempt = 0
		s.nextAllowedAt = time.Time{}
		s.view = view
	case OutcomeNoCredentials:
		// Clear to empty/unknown; backoff and threshold state untouched.
		s.view = view
	case OutcomeRateLimited, OutcomeError:
		// Preserve the last good view; annotate it with the failure message.
		if s.view != nil {
			annotated := *s.view
			annotated.Health = usage.HealthError
			annotated.LastError = string(outcome)
			if cycleErr != nil {
				annotated.LastError = cycleErr.Error()
			}
			s.view = &annotated
		}
	}

	if s.coll != nil {
		s.coll.RefreshDuration.Observe(s.clock.Now().Sub(started).Seconds())
		if outcome == OutcomeOK && view != nil {
			s.coll.LastRefresh.Set(float64(view.LastRefreshAt.Unix()))
			s.coll.BudgetPercent.Set(view.BudgetPercent)
			s.coll.IncludedPercent.Set(view.IncludedPercent)
			s.coll.SpendUSD.Set(view.SpendUSD)
			s.coll.BackoffAttempt.Set(0)
		}
	}
}

func (s *Scheduler) count(trigger Trigger, outcome Outcome) {
	if s.coll != nil {
		s.coll.RefreshCycles.WithLabelValues(string(trigger), string(outcome)).Inc()
	}
}

func (s *Scheduler) publish(e Event) {
	s.mu.Lock()
	subs := append([]func(Event){}, s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}

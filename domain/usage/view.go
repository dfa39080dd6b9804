// Package usage provides pure functions turning a billing summary and a
// preference snapshot into the view state shown to observers.
package usage

import (
	"time"

	"github.com/quotawatch/quotawatch/domain/billing"
)

// Phase indicates which limit current usage is measured against.
type Phase string

const (
	// PhaseIncluded means usage is still inside the included quota.
	PhaseIncluded Phase = "included"
	// PhaseBudget means the included quota is exhausted (or absent) and
	// usage is measured against the dollar budget.
	PhaseBudget Phase = "budget"
)

// Health is the overall severity of the current state.
type Health string

const (
	HealthOk      Health = "ok"
	HealthWarning Health = "warning"
	HealthDanger  Health = "danger"
	HealthStale   Health = "stale"
	HealthError   Health = "error"
)

// Preferences is the configuration snapshot injected per computation call.
// It is treated as an immutable value; the orchestrator owns the current
// preferences and passes a copy into each cycle.
type Preferences struct {
	Product              string
	RefreshInterval      time.Duration
	WarnAtPercent        float64 // 0 disables
	DangerAtPercent      float64 // 0 disables
	NotificationsEnabled bool
	BudgetUSD            float64
	IncludedOverride     int64 // >0 overrides the heuristic included quantity
	SelectedPlan         string
}

// ViewState is the immutable result of one computation.
type ViewState struct {
	Period          billing.Period `json:"period"`
	SpendUSD        float64        `json:"spend_usd"`
	BudgetUSD       float64        `json:"budget_usd"`
	BudgetPercent   float64        `json:"budget_percent"`
	IncludedTotal   int64          `json:"included_total"`
	IncludedUsed    int64          `json:"included_used"`
	IncludedPercent float64        `json:"included_percent"`
	Phase           Phase          `json:"phase"`
	Health          Health         `json:"health"`
	LastRefreshAt   time.Time      `json:"last_refresh_at"`
	LastError       string         `json:"last_error,omitempty"`
}

// ComputeViewState derives a ViewState from one period's summary and the
// preference snapshot. This is a PURE function.
//
// The included total resolves from the override when positive (the caller
// resolves any selected plan into the override beforehand; this function is
// agnostic to plan catalogs), falling back to the summary's heuristic value.
// Health is evaluated on the budget percent regardless of phase, so the
// severity shown stays stable while usage is still in the included phase.
func ComputeViewState(period billing.Period, summary billing.Summary, prefs Preferences, lastRefreshAt time.Time, lastError string) ViewState {
	spend := summary.SpendUSD
	if spend < 0 {
		spend = 0
	}

	includedUsed := summary.TotalQuantity
	if includedUsed < 0 {
		includedUsed = 0
	}

	includedTotal := summary.TotalIncludedQuantity
	if prefs.IncludedOverride > 0 {
		includedTotal = prefs.IncludedOverride
	}

	// The official budget endpoint does not exist yet; the budget source is
	// the manual preference value either way.
	budget := prefs.BudgetUSD

	var includedPercent float64
	if includedTotal > 0 {
		includedPercent = ClampPercent(float64(includedUsed) / float64(includedTotal) * 100)
	}

	var budgetPercent float64
	if budget > 0 {
		budgetPercent = ClampPercent(spend / budget * 100)
	}

	phase := PhaseBudget
	if includedTotal > 0 && includedUsed < includedTotal {
		phase = PhaseIncluded
	}

	return ViewState{
		Period:          period,
		SpendUSD:        spend,
		BudgetUSD:       budget,
		BudgetPercent:   budgetPercent,
		IncludedTotal:   includedTotal,
		IncludedUsed:    includedUsed,
		IncludedPercent: includedPercent,
		Phase:           phase,
		Health:          computeHealth(budget, budgetPercent, prefs, lastError),
		LastRefreshAt:   lastRefreshAt,
		LastError:       lastError,
	}
}

func computeHealth(budget, budgetPercent float64, prefs Preferences, lastError string) Health {
	switch {
	case lastError != "":
		return HealthError
	case budget <= 0:
		// Budget disabled: never warn or danger.
		return HealthOk
	case prefs.DangerAtPercent > 0 && budgetPercent >= prefs.DangerAtPercent:
		return HealthDanger
	case prefs.WarnAtPercent > 0 && budgetPercent >= prefs.WarnAtPercent:
		return HealthWarning
	default:
		return HealthOk
	}
}

// ClampPercent clamps v into [0, 100].
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

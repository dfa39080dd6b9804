// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/quotawatch/quotawatch/domain/billing"
	"github.com/quotawatch/quotawatch/domain/threshold"
	"github.com/quotawatch/quotawatch/domain/usage"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// UsageSource fetches the authenticated identity and the raw billing line
// items for one billing period.
type UsageSource interface {
	FetchUsage(ctx context.Context, token string, period billing.Period) (billing.UsageReport, error)
}

// CredentialProvider returns the bearer token used for usage fetches.
// Absence of a token is an ordinary condition, not an error.
type CredentialProvider interface {
	// Token returns the current token and whether one is available.
	Token() (string, bool)
}

// NotificationSink delivers a notification to the platform. Delivery is
// best-effort: callers log failures and never escalate them.
type NotificationSink interface {
	// Post delivers a notification. The identifier is deterministic per
	// (period, metric, level) so sinks can replace rather than stack.
	Post(ctx context.Context, identifier, title, body string) error
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// StateStore persists threshold bookkeeping and the last known view state
// across process restarts. Corrupt or unreadable state is reported as
// absent, never as a fatal error.
type StateStore interface {
	// LoadThreshold returns the stored state for a key, or nil when absent.
	LoadThreshold(ctx context.Context, key string) (*threshold.State, error)

	// SaveThreshold replaces the stored state for a key wholesale.
	SaveThreshold(ctx context.Context, key string, st threshold.State) error

	// LoadViewState returns the last persisted view state, or nil when absent.
	LoadViewState(ctx context.Context) (*usage.ViewState, error)

	// SaveViewState replaces the persisted view state.
	SaveViewState(ctx context.Context, vs usage.ViewState) error
}

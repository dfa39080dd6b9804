// Package notify provides NotificationSink implementations. Delivery is
// best-effort everywhere: failures are logged and never escalated.
package notify

import (
	"context"

	"github.com/quotawatch/quotawatch/ports"
	"github.com/rs/zerolog"
)

// Log writes notifications to the logger. Always available; used in
// one-shot mode and as the fallback sink.
type Log struct {
	Logger zerolog.Logger
}

// Post logs the notification.
func (l *Log) Post(_ context.Context, identifier, title, body string) error {
	l.Logger.Info().
		Str("identifier", identifier).
		Str("title", title).
		Str("body", body).
		Msg("notification")
	return nil
}

// Multi fans a notification out to several sinks. Errors from individual
// sinks are logged and swallowed; the first error is returned for
// diagnostics only.
type Multi struct {
	Sinks  []ports.NotificationSink
	Logger zerolog.Logger
}

// Post delivers to every sink.
func (m *Multi) Post(ctx context.Context, identifier, title, body string) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.Post(ctx, identifier, title, body); err != nil {
			m.Logger.Warn().Err(err).Str("identifier", identifier).Msg("notification sink failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Ensure interface compliance.
var (
	_ ports.NotificationSink = (*Log)(nil)
	_ ports.NotificationSink = (*Multi)(nil)
)

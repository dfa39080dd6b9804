package notify

import (
	"context"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/quotawatch/quotawatch/ports"
	"github.com/rs/zerolog"
)

// Command delivers notifications by running a desktop notifier binary
// (notify-send on Linux, osascript on macOS). Availability is probed once;
// an absent or unauthorized notifier means posts are skipped silently with
// a diagnostic, per the sink contract.
type Command struct {
	Binary  string
	Logger  zerolog.Logger
	Timeout time.Duration

	probeOnce sync.Once
	available bool
}

// NewCommand creates a command sink. With an empty binary the platform
// default is used.
func NewCommand(binary string, logger zerolog.Logger) *Command {
	if binary == "" {
		if runtime.GOOS == "darwin" {
			binary = "osascript"
		} else {
			binary = "notify-send"
		}
	}
	return &Command{Binary: binary, Logger: logger, Timeout: 5 * time.Second}
}

// Available reports whether the notifier binary can be found.
func (c *Command) Available() bool {
	c.probeOnce.Do(func() {
		_, err := exec.LookPath(c.Binary)
		c.available = err == nil
		if !c.available {
			c.Logger.Debug().Str("binary", c.Binary).Msg("desktop notifier not found, notifications skipped")
		}
	})
	return c.available
}

// Post runs the notifier. Failures are returned for logging by the caller
// but are never fatal.
func (c *Command) Post(ctx context.Context, identifier, title, body string) error {
	if !c.Available() {
		return nil
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if c.Binary == "osascript" {
		script := "display notification " + appleQuote(body) + " with title " + appleQuote(title)
		cmd = exec.CommandContext(ctx, c.Binary, "-e", script)
	} else {
		cmd = exec.CommandContext(ctx, c.Binary, "--app-name=quotawatch", title, body)
	}

	if err := cmd.Run(); err != nil {
		return err
	}
	c.Logger.Debug().Str("identifier", identifier).Msg("desktop notification posted")
	return nil
}

func appleQuote(s string) string {
	out := make([]rune, 0, len(s)+2)
	out = append(out, '"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '"'))
}

// Ensure interface compliance.
var _ ports.NotificationSink = (*Command)(nil)

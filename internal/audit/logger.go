// Package audit records security-relevant navigation events (credential
// purges, guard redirects and route table changes) as structured log entries.
package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyhall/shell/internal/eventbus"
	"github.com/studyhall/shell/internal/navigation"
)

// Entry represents a single audit log entry with structured fields
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Role      string    `json:"role,omitempty"`
	Path      string    `json:"path,omitempty"`
	From      string    `json:"from,omitempty"`
	Target    string    `json:"target,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status"` // "success" or "failure"
	Details   string    `json:"details,omitempty"`
}

// Actions recorded by the audit logger.
const (
	ActionCredentialPurged = "credential.purge"
	ActionRedirect         = "navigation.redirect"
	ActionRoutesReload     = "routes.reload"
)

// Events lists the bus topics the audit logger listens to.
var Events = []string{
	navigation.EventCredentialPurged,
	navigation.EventNavigationRedirected,
	navigation.EventRoutesReloaded,
	navigation.EventRoutesReloadFailed,
}

// Logger writes audit entries through zerolog. When the event context
// carries a request logger, entries go through it so they share the
// request correlation fields.
type Logger struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Log writes an audit entry to the log output
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	logger := l.logger
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		logger = *ctxLogger
	}

	event := logger.Info()
	if entry.Status == "failure" {
		event = logger.Warn()
	}
	event.Str("component", "audit").Interface("audit", entry).Msg(entry.Action)
}

// Attach subscribes the logger to every audit topic on bus.
func (l *Logger) Attach(bus *eventbus.Bus) []*eventbus.Subscription {
	subs := make([]*eventbus.Subscription, 0, len(Events))
	for _, event := range Events {
		subs = append(subs, bus.Subscribe(event, l))
	}
	return subs
}

// HandleEvent turns a navigation or reload event into an audit entry.
// Arguments of an unexpected shape are ignored.
func (l *Logger) HandleEvent(ctx context.Context, event string, args ...any) error {
	if len(args) == 0 {
		return nil
	}

	switch ev := args[0].(type) {
	case navigation.NavigationEvent:
		entry := Entry{
			Subject: ev.Subject,
			Role:    string(ev.Role),
			Path:    ev.To.Path,
			From:    ev.From.Path,
			Target:  ev.Decision.Redirect,
			Reason:  ev.Decision.Reason,
			Status:  "success",
		}
		switch event {
		case navigation.EventCredentialPurged:
			entry.Action = ActionCredentialPurged
		case navigation.EventNavigationRedirected:
			entry.Action = ActionRedirect
		default:
			return nil
		}
		l.Log(ctx, entry)
	case navigation.ReloadEvent:
		entry := Entry{
			Action:  ActionRoutesReload,
			Path:    ev.Path,
			Status:  "success",
			Details: "active routes: " + strconv.Itoa(ev.Routes),
		}
		if ev.Err != nil {
			entry.Status = "failure"
			entry.Details = ev.Err.Error()
		}
		l.Log(ctx, entry)
	}
	return nil
}

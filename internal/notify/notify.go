// Package notify provides the Notifier implementations that stand in for
// browser toasts: a per-session inbox drained on render, a log sink and a
// fanout.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
)

// DefaultInboxCapacity bounds how many undrained notifications are kept.
const DefaultInboxCapacity = 20

// Inbox queues notifications until the next page render drains them.
// When full, the oldest notification is dropped so Notify never blocks.
type Inbox struct {
	mu      sync.Mutex
	pending []domain.Notification
	limit   int
}

// NewInbox creates an inbox holding at most capacity notifications.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Inbox{limit: capacity}
}

// Notify implements ports.Notifier.
func (i *Inbox) Notify(_ context.Context, n domain.Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.pending) >= i.limit {
		i.pending = i.pending[1:]
	}
	i.pending = append(i.pending, n)
}

// Drain returns the queued notifications in arrival order and empties the inbox.
func (i *Inbox) Drain() []domain.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := i.pending
	i.pending = nil
	return out
}

// Len returns the number of queued notifications.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.pending)
}

// Logger writes notifications to a structured logger.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a log sink. A nil logger uses slog.Default().
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// Notify implements ports.Notifier.
func (l *Logger) Notify(ctx context.Context, n domain.Notification) {
	level := slog.LevelInfo
	if n.Level == domain.NotificationError {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "notification",
		slog.String("kind", string(n.Level)),
		slog.String("message", n.Message),
	)
}

// Fanout delivers each notification to every non-nil notifier in order.
func Fanout(notifiers ...ports.Notifier) ports.Notifier {
	targets := make([]ports.Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			targets = append(targets, n)
		}
	}
	return ports.NotifierFunc(func(ctx context.Context, n domain.Notification) {
		for _, t := range targets {
			t.Notify(ctx, n)
		}
	})
}

// Discard drops every notification.
var Discard ports.Notifier = ports.NotifierFunc(func(context.Context, domain.Notification) {})

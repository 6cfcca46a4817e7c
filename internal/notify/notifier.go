// Package notify delivers alerts to operators over one or more channels
// (Telegram, Discord). The Notifier fans out to every configured sender and
// can filter by alert type so an operator only receives the sleeves they
// watch.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"spreadpilot/internal/domain"
)

// Sender is one concrete delivery channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches alerts to its senders. It implements
// domain.NotificationChannel; idempotency on alert id is the policy
// engine's job (Commit after successful delivery), the Notifier itself is
// stateless.
type Notifier struct {
	senders []Sender
	types   map[string]bool
	logger  *slog.Logger
}

var _ domain.NotificationChannel = (*Notifier)(nil)

// NewNotifier creates a Notifier delivering to the given senders. Only alert
// types listed in types pass the filter; an empty list allows everything.
func NewNotifier(senders []Sender, types []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[strings.TrimSpace(t)] = true
	}
	return &Notifier{
		senders: senders,
		types:   allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Deliver sends a formatted alert to every sender. The id is logged for
// traceability; a failed sender does not stop delivery to the rest.
func (n *Notifier) Deliver(ctx context.Context, id, title, body string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, body); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("alert", id),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "alert delivered",
				slog.String("sender", s.Name()),
				slog.String("alert", id),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Allowed reports whether the alert type passes the configured filter.
func (n *Notifier) Allowed(t domain.AlertType) bool {
	return len(n.types) == 0 || n.types[string(t)]
}

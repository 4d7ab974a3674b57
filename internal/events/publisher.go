package events

import (
	"context"
	"log/slog"

	"finance-tracker/internal/record"
)

type Publisher interface {
	Publish(ctx context.Context, msg *RecordEvent) error
	Close() error
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, *RecordEvent) error { return nil }
func (Noop) Close() error                                { return nil }

// Listener forwards record changes to a Publisher. Publish errors are logged
// and dropped so a broker outage never fails an API call.
type Listener struct {
	pub Publisher
	log *slog.Logger
}

func NewListener(pub Publisher) *Listener {
	return &Listener{pub: pub, log: slog.Default().With("component", "events")}
}

func (l *Listener) RecordChanged(ctx context.Context, ev record.ChangeEvent) {
	msg := NewRecordEvent(ev)
	if err := l.pub.Publish(ctx, msg); err != nil {
		l.log.ErrorContext(ctx, "failed to publish record event",
			"error", err,
			"routing_key", msg.RoutingKey(),
			"id", msg.ID)
	}
}

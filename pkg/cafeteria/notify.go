package cafeteria

import (
	"context"

	"github.com/rs/zerolog"
)

// EventKind names a lifecycle transition worth telling people about.
type EventKind string

const (
	EventRolledOut EventKind = "rolled_out"
	EventFinalized EventKind = "finalized"
	EventDiscards  EventKind = "discards_generated"
)

// Event is a human-readable lifecycle message.
type Event struct {
	Kind EventKind
	Key  string // day or period key
	Text string
}

// Notifier delivers events on a best-effort basis. Errors are logged by the
// engine and never fail the operation that raised the event.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// LogNotifier writes events to a zerolog logger.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Log.Info().
		Str("event", string(ev.Kind)).
		Str("key", ev.Key).
		Msg(ev.Text)
	return nil
}

package ports

import "context"

// EventSink receives analytics events. Implementations must not block the caller
// for long and must never fail the control flow that emitted the event.
type EventSink interface {
	Record(ctx context.Context, name string, attrs map[string]any)
}

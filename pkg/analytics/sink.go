package analytics

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, string, map[string]any) {}

// Multi fans an event out to every sink, in order.
type Multi []ports.EventSink

func (m Multi) Record(ctx context.Context, name string, attrs map[string]any) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, name, attrs)
		}
	}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Record(ctx context.Context, name string, attrs map[string]any) {
	if s.Logger == nil {
		return
	}
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("event", name))
	for k, v := range attrs {
		args = append(args, slog.Any(k, v))
	}
	s.Logger.InfoContext(ctx, "event tracked", args...)
}

// MetricsSink counts events by name.
type MetricsSink struct {
	Counter *prometheus.CounterVec
}

func (s MetricsSink) Record(_ context.Context, name string, _ map[string]any) {
	if s.Counter == nil {
		return
	}
	s.Counter.WithLabelValues(name).Inc()
}

// Recorder keeps events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *Recorder) Record(_ context.Context, name string, attrs map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, domain.Event{
		Name:       name,
		Attributes: maps.Clone(attrs),
		Timestamp:  time.Now(),
	})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

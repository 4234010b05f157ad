// Package submission serializes a finished LeadRecord and hands it to a transport.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guihenriquebr/sefra/internal/logging"
	"github.com/guihenriquebr/sefra/internal/metrics"
	"github.com/guihenriquebr/sefra/pkg/analytics"
	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/ports"
)

// Pipeline submits leads. Safe for concurrent use.
type Pipeline struct {
	transport ports.LeadTransport
	queue     ports.PendingQueue
	sink      ports.EventSink
	gate      *Gate
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	onToggle  func(key string, submitting bool)
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithQueue enables queueing of payloads that failed before reaching the server.
func WithQueue(q ports.PendingQueue) Option {
	return func(p *Pipeline) {
		p.queue = q
	}
}

// WithEventSink sets the analytics sink.
func WithEventSink(s ports.EventSink) Option {
	return func(p *Pipeline) {
		p.sink = s
	}
}

// WithMetrics records submission counters and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithClock overrides the time source used for payload timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithSubmittingHook is called with true when the submit control must be
// disabled and with false when it must be restored. The false call happens on
// every exit path.
func WithSubmittingHook(fn func(key string, submitting bool)) Option {
	return func(p *Pipeline) {
		p.onToggle = fn
	}
}

// New creates a pipeline over transport.
func New(transport ports.LeadTransport, opts ...Option) *Pipeline {
	p := &Pipeline{
		transport: transport,
		sink:      analytics.Nop{},
		gate:      NewGate(),
		logger:    logging.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit sends record under the submitting lock of key (typically the session ID).
// A concurrent Submit for the same key fails with domain.ErrSubmitInProgress.
//
// When the transport fails before the server answers and a queue is configured,
// the payload is queued for background retry; the error is still returned so
// the caller can tell the user.
func (p *Pipeline) Submit(ctx context.Context, key string, record domain.LeadRecord) (domain.LeadID, error) {
	release, err := p.gate.Acquire(key)
	if err != nil {
		return "", err
	}
	p.toggle(key, true)
	defer func() {
		release()
		p.toggle(key, false)
	}()

	payload, err := BuildPayload(record.Snapshot(), p.now())
	if err != nil {
		return "", fmt.Errorf("failed to build lead payload: %w", err)
	}

	start := time.Now()
	leadID, err := p.transport.Send(ctx, payload)
	elapsed := time.Since(start).Seconds()

	if err == nil {
		p.metrics.ObserveSubmission("success", elapsed)
		p.logger.InfoContext(ctx, "lead submitted", "key", key, "lead_id", leadID)
		return leadID, nil
	}

	p.metrics.ObserveSubmission("failure", elapsed)
	p.logger.WarnContext(ctx, "lead submission failed", "key", key, "error", err)

	var tErr *domain.TransportError
	if !errors.As(err, &tErr) {
		tErr = &domain.TransportError{Err: err}
		err = tErr
	}

	// A canceled context means the user abandoned the form; nothing to retry.
	if p.queue != nil && tErr.Temporary() && ctx.Err() == nil {
		p.enqueue(ctx, key, payload, tErr)
	}
	return "", err
}

func (p *Pipeline) enqueue(ctx context.Context, key string, payload []byte, cause error) {
	sub := domain.PendingSubmission{
		ID:        p.newID(),
		Payload:   payload,
		QueuedAt:  p.now().UTC(),
		LastError: cause.Error(),
	}
	if err := p.queue.Enqueue(context.WithoutCancel(ctx), sub); err != nil {
		p.logger.ErrorContext(ctx, "failed to queue submission for retry", "key", key, "error", err)
		return
	}
	p.logger.InfoContext(ctx, "submission queued for background sync", "key", key, "retry_id", sub.ID)
	p.sink.Record(ctx, domain.EventSubmissionQueued, map[string]any{"retry_id": sub.ID})
}

func (p *Pipeline) toggle(key string, on bool) {
	if p.onToggle != nil {
		p.onToggle(key, on)
	}
}

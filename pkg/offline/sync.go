package offline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/sjson"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// SyncReport summarizes one drain of the pending queue.
type SyncReport struct {
	Tag       string `json:"tag"`
	Attempted int    `json:"attempted"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Remaining int    `json:"remaining"`
}

// Sync handles a background sync trigger. For domain.SyncTagLead every
// queued submission is re-posted: delivered entries are removed, failed ones
// stay with their attempt count and last error. Delivery is at least once.
// Other tags are ignored.
func (w *Worker) Sync(ctx context.Context, tag string) (*SyncReport, error) {
	v, err := w.call(ctx, func(ctx context.Context) (any, error) {
		return w.sync(ctx, tag)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SyncReport), nil
}

func (w *Worker) sync(ctx context.Context, tag string) (*SyncReport, error) {
	report := &SyncReport{Tag: tag}
	if tag != domain.SyncTagLead {
		w.logger.DebugContext(ctx, "ignoring sync tag", "tag", tag)
		return report, nil
	}
	if w.queue == nil || w.transport == nil {
		return nil, errors.New("background sync requires a queue and a transport")
	}

	if w.locker != nil {
		unlock, err := w.locker.Lock(ctx, "sync:"+tag, w.syncLockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn("Failed to release sync lock (will expire via TTL)", "tag", tag, "err", err)
			}
		}()
	}

	items, err := w.queue.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}

	for _, sub := range items {
		if ctx.Err() != nil {
			break
		}
		report.Attempted++
		if err := w.retry(ctx, sub); err != nil {
			report.Failed++
			continue
		}
		report.Sent++
	}

	remaining, err := w.queue.List(ctx)
	if err == nil {
		report.Remaining = len(remaining)
		w.metrics.SetPending(report.Remaining)
	}
	w.logger.InfoContext(ctx, "background sync finished",
		"tag", tag,
		"attempted", report.Attempted,
		"sent", report.Sent,
		"failed", report.Failed,
	)
	return report, ctx.Err()
}

func (w *Worker) retry(ctx context.Context, sub domain.PendingSubmission) error {
	payload, err := stampRetry(sub, w.now())
	if err != nil {
		payload = sub.Payload
	}

	leadID, sendErr := w.transport.Send(ctx, payload)
	if sendErr == nil {
		if err := w.queue.Remove(ctx, sub.ID); err != nil {
			// Left in the queue, so it will be sent again.
			w.logger.ErrorContext(ctx, "failed to remove delivered submission", "retry_id", sub.ID, "error", err)
		}
		w.metrics.ObserveSync("success")
		w.sink.Record(ctx, domain.EventSubmissionRetried, map[string]any{
			"retry_id": sub.ID,
			"lead_id":  string(leadID),
			"attempts": sub.Attempts + 1,
		})
		return nil
	}

	w.metrics.ObserveSync("failure")
	sub.Attempts++
	sub.LastError = sendErr.Error()
	if err := w.queue.Update(context.WithoutCancel(ctx), sub); err != nil && !errors.Is(err, domain.ErrSubmissionNotFound) {
		w.logger.ErrorContext(ctx, "failed to record retry attempt", "retry_id", sub.ID, "error", err)
	}
	w.logger.WarnContext(ctx, "queued submission retry failed", "retry_id", sub.ID, "attempts", sub.Attempts, "error", sendErr)
	return sendErr
}

// stampRetry annotates the payload with the retry bookkeeping.
func stampRetry(sub domain.PendingSubmission, now time.Time) ([]byte, error) {
	out, err := sjson.SetBytes(sub.Payload, "retry.attempt", sub.Attempts+1)
	if err != nil {
		return nil, err
	}
	out, err = sjson.SetBytes(out, "retry.queued_at", sub.QueuedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "retry.sent_at", now.UTC().Format(time.RFC3339))
}

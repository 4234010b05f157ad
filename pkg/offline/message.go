package offline

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// LCPBudgetMillis is the largest contentful paint above which a performance
// report is logged as a warning.
const LCPBudgetMillis = 2500

// HandleMessage processes a control message of the form {"type": ..., ...}.
// CLEAR_CACHE deletes every generation and replies {"success":true}.
// PERFORMANCE_METRICS logs the reported metrics and has no reply.
func (w *Worker) HandleMessage(ctx context.Context, msg []byte) ([]byte, error) {
	v, err := w.call(ctx, func(ctx context.Context) (any, error) {
		return w.handleMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	reply, _ := v.([]byte)
	return reply, nil
}

func (w *Worker) handleMessage(ctx context.Context, msg []byte) ([]byte, error) {
	if !gjson.ValidBytes(msg) {
		return nil, fmt.Errorf("%w: malformed message", domain.ErrUnknownMessage)
	}

	switch kind := gjson.GetBytes(msg, "type").String(); kind {
	case domain.MessageClearCache:
		if err := w.clearCache(ctx); err != nil {
			return nil, err
		}
		return sjson.SetBytes(nil, "success", true)

	case domain.MessagePerformanceMetrics:
		w.reportPerformance(ctx, gjson.GetBytes(msg, "metrics"))
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMessage, kind)
	}
}

func (w *Worker) clearCache(ctx context.Context) error {
	gens, err := w.cache.Generations(ctx)
	if err != nil {
		return &domain.CacheError{Op: "clear", Err: err}
	}
	for _, name := range gens {
		if err := w.cache.DeleteGeneration(ctx, name); err != nil {
			return &domain.CacheError{Op: "clear", Key: name, Err: err}
		}
	}
	w.logger.InfoContext(ctx, "offline cache cleared", "generations", len(gens))
	return nil
}

func (w *Worker) reportPerformance(ctx context.Context, metrics gjson.Result) {
	attrs := []any{}
	metrics.ForEach(func(key, value gjson.Result) bool {
		attrs = append(attrs, key.String(), value.Value())
		return true
	})
	w.logger.InfoContext(ctx, "performance metrics", attrs...)

	if lcp := metrics.Get("lcp"); lcp.Exists() && lcp.Float() > LCPBudgetMillis {
		w.logger.WarnContext(ctx, "LCP exceeds budget", "lcp_ms", lcp.Float(), "budget_ms", LCPBudgetMillis)
	}
}

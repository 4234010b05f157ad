package analytics_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guihenriquebr/sefra/pkg/analytics"
	"github.com/guihenriquebr/sefra/pkg/domain"
)

func TestMulti_FansOut(t *testing.T) {
	a, b := &analytics.Recorder{}, &analytics.Recorder{}
	sink := analytics.Multi{a, nil, b}

	sink.Record(context.Background(), domain.EventLeadInitiated, map[string]any{"source": "hero-simular"})

	assert.Equal(t, []string{domain.EventLeadInitiated}, a.Names())
	assert.Equal(t, []string{domain.EventLeadInitiated}, b.Names())
	assert.Equal(t, "hero-simular", a.Events()[0].Attributes["source"])
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := analytics.LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	sink.Record(context.Background(), domain.EventStepCompleted, map[string]any{"step": 1})

	assert.Contains(t, buf.String(), "event=form_step_completed")
	assert.Contains(t, buf.String(), "step=1")
}

func TestMetricsSink(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_events_total"}, []string{"event"})
	sink := analytics.MetricsSink{Counter: counter}

	sink.Record(context.Background(), domain.EventLeadSubmitted, nil)
	sink.Record(context.Background(), domain.EventLeadSubmitted, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(counter.WithLabelValues(domain.EventLeadSubmitted)))
}

func TestPixelSink(t *testing.T) {
	rec := &analytics.Recorder{}
	sink := analytics.PixelSink{Next: rec}
	ctx := context.Background()

	sink.Record(ctx, domain.EventStepCompleted, map[string]any{"step": 1})
	sink.Record(ctx, domain.EventLeadSubmitted, map[string]any{domain.FieldPropertyValue: "350.000"})

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "pixel_Lead", events[0].Name)
	assert.Equal(t, analytics.PixelLead, events[0].Attributes["pixel_event"])
	assert.Equal(t, int64(350000), events[0].Attributes["value"])
	assert.Equal(t, "BRL", events[0].Attributes["currency"])
}

package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guihenriquebr/sefra/internal/metrics"
	sefrahttp "github.com/guihenriquebr/sefra/pkg/adapters/http"
	"github.com/guihenriquebr/sefra/pkg/adapters/memory"
	"github.com/guihenriquebr/sefra/pkg/analytics"
	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/session"
	"github.com/guihenriquebr/sefra/pkg/wizard"
)

type submitFunc func(ctx context.Context, key string, record domain.LeadRecord) (domain.LeadID, error)

func (f submitFunc) Submit(ctx context.Context, key string, record domain.LeadRecord) (domain.LeadID, error) {
	return f(ctx, key, record)
}

func siteDir(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "site")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>SEFRA</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "styles.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "data.bin"), []byte{1, 2}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(root), "secret.txt"), []byte("secret"), 0o644))
	return root
}

func newServer(t *testing.T, opts ...sefrahttp.Option) http.Handler {
	t.Helper()
	opts = append([]sefrahttp.Option{sefrahttp.WithLeadDelay(0)}, opts...)
	srv, err := sefrahttp.New(siteDir(t), opts...)
	require.NoError(t, err)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestStatic(t *testing.T) {
	h := newServer(t)

	t.Run("Root serves index", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<h1>SEFRA</h1>", rec.Body.String())
		assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	})

	t.Run("Assets are cached for a year", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/assets/styles.css", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/css", rec.Header().Get("Content-Type"))
		assert.Equal(t, "public, max-age=31536000", rec.Header().Get("Cache-Control"))
	})

	t.Run("Unknown extension", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/assets/data.bin", "")
		assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	})

	t.Run("Missing file", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/nope.html", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "404 - Página não encontrada")
		assert.Contains(t, rec.Body.String(), `href="/"`)
	})

	t.Run("Traversal", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/../secret.txt", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Forbidden", rec.Body.String())
	})

	t.Run("Security headers", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/nope.html", "")
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"))
		assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	})
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a.JS":       "application/javascript",
		"logo.svg":   "image/svg+xml",
		"f.woff2":    "font/woff2",
		"photo.jpeg": "image/jpeg",
		"README":     "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, sefrahttp.ContentType(name), name)
	}
}

func TestPreflight(t *testing.T) {
	h := newServer(t)
	rec := do(t, h, http.MethodOptions, "/api/leads", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestLeads(t *testing.T) {
	var logs bytes.Buffer
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	now := time.UnixMilli(1700000000123)
	h := newServer(t,
		sefrahttp.WithClock(func() time.Time { return now }),
		sefrahttp.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
		sefrahttp.WithMetrics(m, reg),
	)

	t.Run("Method not allowed", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/leads", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "Method not allowed", decode(t, rec)["error"])
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/leads", "{nope")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Invalid JSON data", body["message"])
	})

	t.Run("Accepted", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/leads", `{"nome":"Maria","email":"maria@example.com","cidade":"<b>Recife</b>"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Lead received successfully", body["message"])
		assert.Equal(t, "lead_1700000000123", body["leadId"])

		assert.Contains(t, logs.String(), "new lead received")
		assert.NotContains(t, logs.String(), "maria@example.com")
		assert.Contains(t, logs.String(), `"cidade":"Recife"`)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.LeadsReceived))
	})

	t.Run("Metrics endpoint", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "sefra_leads_received_total 1")
		assert.Contains(t, rec.Body.String(), `sefra_http_requests_total{code="2xx",route="/api/leads"}`)
	})
}

func TestLeadDelay(t *testing.T) {
	h := newServer(t, sefrahttp.WithLeadDelay(20*time.Millisecond))
	start := time.Now()
	rec := do(t, h, http.MethodPost, "/api/leads", `{"nome":"Ana"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func sessionServer(t *testing.T) http.Handler {
	t.Helper()
	ctl, err := wizard.NewController(domain.DefaultForm())
	require.NoError(t, err)
	sub := submitFunc(func(context.Context, string, domain.LeadRecord) (domain.LeadID, error) {
		return "lead_42", nil
	})
	return newServer(t, sefrahttp.WithSessions(session.NewManager(memory.NewStore(), ctl, sub)))
}

func sessionOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	s, ok := body["session"].(map[string]any)
	require.True(t, ok, "response has no session: %v", body)
	return s
}

func TestSessions(t *testing.T) {
	h := sessionServer(t)

	rec := do(t, h, http.MethodPost, "/api/simulator/sessions?utm_source=google&page=2", `{"source":"hero"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	s := sessionOf(t, created)
	id := s["session_id"].(string)
	assert.Equal(t, "active", s["status"])
	assert.EqualValues(t, 1, s["current_step"])
	assert.Equal(t, map[string]any{"utm_source": "google"}, s["acquisition"])
	assert.Equal(t, "Passo 1 de 3", created["progress"].(map[string]any)["label"])

	base := "/api/simulator/sessions/" + id

	t.Run("Validation failure", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, base+"/next", `{"values":{"nome":"M"}}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode(t, rec)
		fields := body["fields"].(map[string]any)
		assert.Contains(t, fields, "email")
		assert.EqualValues(t, 1, sessionOf(t, body)["current_step"])
	})

	t.Run("Prev at first step", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, base+"/prev", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Wizard flow", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, base+"/next", `{"values":{"nome":"Maria Souza","email":"maria@example.com","telefone":"11987654321"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.EqualValues(t, 2, sessionOf(t, decode(t, rec))["current_step"])

		rec = do(t, h, http.MethodPost, base+"/prev", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, sessionOf(t, decode(t, rec))["current_step"])

		rec = do(t, h, http.MethodPost, base+"/next", `{"values":{"nome":"Maria Souza","email":"maria@example.com","telefone":"11987654321"}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = do(t, h, http.MethodPost, base+"/next", `{"values":{"valor_imovel":"350000","prazo":"180"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, h, http.MethodPost, base+"/submit", `{"values":{"cidade":"Recife"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		s := sessionOf(t, body)
		assert.Equal(t, "success", s["status"])
		assert.Equal(t, "lead_42", s["lead_id"])

		var kinds []string
		for _, e := range body["effects"].([]any) {
			kinds = append(kinds, e.(map[string]any)["kind"].(string))
		}
		assert.Contains(t, kinds, "invoke_submit")
		assert.Contains(t, kinds, "show_step")
	})

	t.Run("Get", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, base, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", sessionOf(t, decode(t, rec))["status"])
	})

	t.Run("Close", func(t *testing.T) {
		rec := do(t, h, http.MethodDelete, base, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "closed", sessionOf(t, decode(t, rec))["status"])

		rec = do(t, h, http.MethodPost, base+"/next", `{"values":{}}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Unknown session", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/simulator/sessions/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSessions_Input(t *testing.T) {
	h := sessionServer(t)
	rec := do(t, h, http.MethodPost, "/api/simulator/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/api/simulator/sessions/" + sessionOf(t, decode(t, rec))["session_id"].(string)

	rec = do(t, h, http.MethodPost, base+"/input", `{"type":"scroll"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/input", `{"type":"keydown","key":"Tab","focused":3,"focusable":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Len(t, body["effects"], 1)
	assert.Equal(t, "move_focus", body["effects"].([]any)[0].(map[string]any)["kind"])

	rec = do(t, h, http.MethodPost, base+"/input", `{"type":"keydown","key":"Escape"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", sessionOf(t, decode(t, rec))["status"])
}

func TestSanitizeValue(t *testing.T) {
	_, err := sefrahttp.SanitizeValue(nil, strings.Repeat("a", sefrahttp.DefaultMaxValueSize+1))
	assert.ErrorIs(t, err, sefrahttp.ErrValueTooLarge)

	_, err = sefrahttp.SanitizeValue(nil, "\xff")
	assert.ErrorIs(t, err, sefrahttp.ErrInvalidUTF8)

	got, err := sefrahttp.SanitizeValue(nil, "São\x1b[31m Paulo\n")
	require.NoError(t, err)
	assert.Equal(t, "São[31m Paulo\n", got)
}

func TestEvents(t *testing.T) {
	rec := &analytics.Recorder{}
	h := newServer(t, sefrahttp.WithEventSink(analytics.Multi{rec, analytics.PixelSink{Next: rec}}))

	t.Run("WhatsApp click fans out to the pixel", func(t *testing.T) {
		res := do(t, h, http.MethodPost, "/api/events", `{"event":"whatsapp_click","attrs":{"source":"hero"}}`)
		assert.Equal(t, http.StatusAccepted, res.Code)
		assert.Equal(t, true, decode(t, res)["success"])

		assert.Equal(t, []string{domain.EventWhatsAppClick, "pixel_" + analytics.PixelContact}, rec.Names())
		events := rec.Events()
		assert.Equal(t, "hero", events[0].Attributes["source"])
		assert.Equal(t, analytics.PixelContact, events[1].Attributes["pixel_event"])
		assert.Equal(t, "hero", events[1].Attributes["source"])
	})

	t.Run("CTA text is sanitized", func(t *testing.T) {
		res := do(t, h, http.MethodPost, "/api/events", `{"event":"cta_click","attrs":{"cta_id":"hero-cta","cta_text":"<b>Simular</b>"}}`)
		require.Equal(t, http.StatusAccepted, res.Code)
		events := rec.Events()
		last := events[len(events)-1]
		assert.Equal(t, domain.EventCTAClick, last.Name)
		assert.Equal(t, "Simular", last.Attributes["cta_text"])
	})

	t.Run("Page view without attributes", func(t *testing.T) {
		res := do(t, h, http.MethodPost, "/api/events", `{"event":"page_view"}`)
		assert.Equal(t, http.StatusAccepted, res.Code)
		assert.Contains(t, rec.Names(), domain.EventPageView)
	})

	t.Run("Rejected", func(t *testing.T) {
		before := len(rec.Events())
		for _, body := range []string{
			`{"event":"lead_submitted"}`,
			`{"event":"cta_click","attrs":{"value":1}}`,
			`not json`,
		} {
			res := do(t, h, http.MethodPost, "/api/events", body)
			assert.Equal(t, http.StatusBadRequest, res.Code, body)
		}
		assert.Len(t, rec.Events(), before)
	})
}

package offline

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// HeaderCacheSource reports how the proxy answered a request.
const HeaderCacheSource = "X-Sefra-Cache"

const maxMessageBytes = 64 << 10

// Handler exposes the worker as a local caching proxy in front of its
// origin. Control routes live under /__worker/.
func (w *Worker) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/__worker/message", w.serveMessage)
	r.Post("/__worker/sync", w.serveSync)
	r.Get("/__worker/phase", w.servePhase)
	r.HandleFunc("/*", w.serveProxy)

	return r
}

func (w *Worker) serveMessage(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"success": false, "message": "failed to read message"})
		return
	}

	reply, err := w.HandleMessage(r.Context(), body)
	switch {
	case errors.Is(err, domain.ErrUnknownMessage):
		writeJSON(rw, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
	case err != nil:
		w.logger.ErrorContext(r.Context(), "worker message failed", "error", err)
		writeJSON(rw, http.StatusInternalServerError, map[string]any{"success": false, "message": err.Error()})
	case reply == nil:
		rw.WriteHeader(http.StatusNoContent)
	default:
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write(reply)
	}
}

func (w *Worker) serveSync(rw http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		tag = domain.SyncTagLead
	}
	report, err := w.Sync(r.Context(), tag)
	if err != nil {
		w.logger.ErrorContext(r.Context(), "background sync failed", "tag", tag, "error", err)
		writeJSON(rw, http.StatusInternalServerError, map[string]any{"success": false, "message": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, report)
}

func (w *Worker) servePhase(rw http.ResponseWriter, r *http.Request) {
	phase, err := w.Phase(r.Context())
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"success": false, "message": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"phase": phase, "static": w.gens.Static, "dynamic": w.gens.Dynamic})
}

// serveProxy forwards the request to the origin through Fetch. Requests in
// absolute form (forward proxy) keep their own target.
func (w *Worker) serveProxy(rw http.ResponseWriter, r *http.Request) {
	out := r.Clone(r.Context())
	if !r.URL.IsAbs() {
		u := *w.origin
		u.Path = r.URL.Path
		u.RawPath = r.URL.RawPath
		u.RawQuery = r.URL.RawQuery
		out.URL = &u
	}
	out.Host = out.URL.Host
	out.RequestURI = ""
	// Bodies are cached and replayed as-is, so they must not depend on the client's encodings.
	out.Header.Del("Accept-Encoding")

	resp, err := w.Fetch(r.Context(), out)
	if err != nil {
		w.logger.WarnContext(r.Context(), "proxy fetch failed", "url", out.URL.String(), "error", err)
		http.Error(rw, "Bad Gateway", http.StatusBadGateway)
		return
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			rw.Header().Add(k, v)
		}
	}
	rw.Header().Del("Content-Length")
	rw.Header().Set(HeaderCacheSource, string(resp.Source))
	rw.WriteHeader(resp.Status)
	_, _ = rw.Write(resp.Body)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

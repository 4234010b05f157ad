package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

const (
	maxEventBody  = 16 << 10
	maxEventAttrs = 32
)

// pageEvents are the events the page may report itself. Funnel events are
// only emitted by the wizard.
var pageEvents = map[string]bool{
	domain.EventPageView:      true,
	domain.EventCTAClick:      true,
	domain.EventWhatsAppClick: true,
}

type eventRequest struct {
	Event string            `json:"event"`
	Attrs map[string]string `json:"attrs"`
}

// recordEvent forwards a page interaction (page view, CTA or WhatsApp click)
// to the event sink.
func (s *Server) recordEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxEventBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON data"})
		return
	}
	if !pageEvents[req.Event] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown event"})
		return
	}
	if len(req.Attrs) > maxEventAttrs {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Too many attributes"})
		return
	}
	attrs, err := sanitizeFields(s.policy, req.Attrs)
	if err != nil {
		s.logger.WarnContext(r.Context(), "event rejected", "event", req.Event, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid event data"})
		return
	}

	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	s.events.Record(r.Context(), req.Event, out)
	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pii "github.com/guihenriquebr/sefra/pkg/persistence/middleware"
	"github.com/guihenriquebr/sefra/pkg/submission"
)

// maxLeadBody bounds the request body of the lead endpoint.
const maxLeadBody = 1 << 20

// receiveLead accepts a lead payload, logs it and answers with a lead ID after
// the configured processing delay.
func (s *Server) receiveLead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	lead, err := decodeLead(io.LimitReader(r.Body, maxLeadBody))
	if err != nil {
		s.logger.WarnContext(r.Context(), "invalid lead payload", "error", err)
		writeJSON(w, http.StatusBadRequest, submission.Response{Success: false, Message: "Invalid JSON data"})
		return
	}
	if _, err := sanitizeJSON(s.policy, lead); err != nil {
		s.logger.WarnContext(r.Context(), "lead payload rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, submission.Response{Success: false, Message: "Invalid lead data"})
		return
	}

	s.metrics.LeadReceived()
	s.logger.InfoContext(r.Context(), "new lead received",
		"received_at", s.now().UTC().Format(time.RFC3339),
		"lead", s.maskLead(lead),
	)

	if s.leadDelay > 0 {
		timer := time.NewTimer(s.leadDelay)
		defer timer.Stop()
		select {
		case <-r.Context().Done():
			return
		case <-timer.C:
		}
	}

	writeJSON(w, http.StatusOK, submission.Response{
		Success: true,
		Message: "Lead received successfully",
		LeadID:  fmt.Sprintf("lead_%d", s.now().UnixMilli()),
	})
}

func decodeLead(r io.Reader) (map[string]any, error) {
	var lead map[string]any
	if err := json.NewDecoder(r).Decode(&lead); err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, fmt.Errorf("lead payload must be a JSON object")
	}
	return lead, nil
}

// maskLead returns a log-safe copy of lead with personal fields masked.
func (s *Server) maskLead(lead map[string]any) map[string]any {
	strs := make(map[string]string, len(lead))
	for k, v := range lead {
		if str, ok := v.(string); ok {
			strs[k] = str
		}
	}
	masked := pii.Mask(strs, s.patterns)

	out := make(map[string]any, len(lead))
	for k, v := range lead {
		if str, ok := masked[k]; ok {
			out[k] = str
			continue
		}
		out[k] = v
	}
	return out
}

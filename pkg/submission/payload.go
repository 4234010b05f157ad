package submission

import (
	"encoding/json"
	"time"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// Metadata keys added to every outbound payload.
const (
	KeyTimestamp = "timestamp"
	KeySource    = "source"
	KeyUTM       = "utm_params"
)

// BuildPayload flattens the record fields and adds the capture timestamp
// (ISO-8601, now when the record has none), the lead source and the
// acquisition parameters. Metadata keys override fields of the same name.
func BuildPayload(record domain.LeadRecord, now time.Time) ([]byte, error) {
	out := make(map[string]any, len(record.Fields)+3)
	for k, v := range record.Fields {
		out[k] = v
	}

	ts := record.CapturedAt
	if ts.IsZero() {
		ts = now
	}
	out[KeyTimestamp] = ts.UTC().Format(time.RFC3339Nano)
	out[KeySource] = domain.LeadSource

	utm := record.Acquisition
	if utm == nil {
		utm = map[string]string{}
	}
	out[KeyUTM] = utm

	return json.Marshal(out)
}

// Response is the body returned by the lead endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	LeadID  string `json:"leadId,omitempty"`
}

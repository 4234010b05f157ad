package domain

import (
	"maps"
	"time"
)

// LeadID identifies an accepted lead.
type LeadID string

// LeadRecord aggregates the values collected across the wizard steps.
type LeadRecord struct {
	Fields      map[string]string `json:"fields"`
	CapturedAt  time.Time         `json:"captured_at,omitzero"`
	Acquisition map[string]string `json:"acquisition,omitempty"`
}

// NewLeadRecord returns an empty record.
func NewLeadRecord() LeadRecord {
	return LeadRecord{Fields: make(map[string]string)}
}

// Merge returns a copy of the record with values added on top of the existing
// fields. Fields of earlier steps are kept.
func (r LeadRecord) Merge(values map[string]string) LeadRecord {
	out := r.Snapshot()
	for k, v := range values {
		out.Fields[k] = v
	}
	return out
}

// Snapshot returns a deep copy, safe to hand to another goroutine.
func (r LeadRecord) Snapshot() LeadRecord {
	out := LeadRecord{
		Fields:     make(map[string]string, len(r.Fields)),
		CapturedAt: r.CapturedAt,
	}
	maps.Copy(out.Fields, r.Fields)
	if r.Acquisition != nil {
		out.Acquisition = maps.Clone(r.Acquisition)
	}
	return out
}

// Len is the number of collected fields.
func (r LeadRecord) Len() int {
	return len(r.Fields)
}

package domain

import "maps"

// WizardStatus defines the lifecycle of a simulator session.
type WizardStatus string

const (
	StatusClosed     WizardStatus = "closed"     // Modal not open (pre-open or post-reset)
	StatusActive     WizardStatus = "active"     // Collecting input on an input step
	StatusSubmitting WizardStatus = "submitting" // Waiting for the submission pipeline
	StatusSuccess    WizardStatus = "success"    // Terminal success step
)

// State is the snapshot of one simulator session.
type State struct {
	SessionID string `json:"session_id"`

	Status WizardStatus `json:"status"`

	// CurrentStep is 0 while closed, 1..N on input steps and N+1 on success.
	CurrentStep int `json:"current_step"`

	Record LeadRecord `json:"record"`

	// Errors holds the inline message per invalid field of the current step.
	Errors map[string]string `json:"errors,omitempty"`

	// Message is the last user-facing notice (e.g. a failed submission).
	Message string `json:"message,omitempty"`

	LeadID LeadID `json:"lead_id,omitempty"`

	// Epoch increases on every open and close. Results of a submission started
	// under an older epoch are discarded.
	Epoch int `json:"epoch"`

	// Acquisition parameters captured at session start; survive close/open.
	Acquisition map[string]string `json:"acquisition,omitempty"`
}

// NewState creates a closed session.
func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		Status:    StatusClosed,
		Record:    NewLeadRecord(),
	}
}

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Record = s.Record.Snapshot()
	if s.Errors != nil {
		out.Errors = maps.Clone(s.Errors)
	}
	if s.Acquisition != nil {
		out.Acquisition = maps.Clone(s.Acquisition)
	}
	return &out
}

// IsOpen reports whether the modal is showing.
func (s *State) IsOpen() bool {
	return s.Status != StatusClosed
}

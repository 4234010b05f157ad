package wizard

import (
	"time"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// Effect is a side effect requested from the host.
type Effect interface {
	Kind() string
}

// ShowStep makes the given step the only visible one.
type ShowStep struct {
	Step int `json:"step"`
}

// ShowProgress updates the progress indicator.
type ShowProgress struct {
	Progress Progress `json:"progress"`
}

// ShowFieldErrors annotates invalid fields.
type ShowFieldErrors struct {
	Errors map[string]string `json:"errors"`
}

// ClearErrors removes every field annotation.
type ClearErrors struct{}

// LockScroll disables page scrolling behind the modal.
type LockScroll struct{}

// RestoreScroll re-enables page scrolling.
type RestoreScroll struct{}

// FocusFirstInput focuses the first input of the modal after Delay.
type FocusFirstInput struct {
	Delay time.Duration `json:"delay"`
}

// TrapFocus enables or disables keeping keyboard focus inside the modal.
type TrapFocus struct {
	Enabled bool `json:"enabled"`
}

// MoveFocus moves keyboard focus to the focusable element at Index.
type MoveFocus struct {
	Index int `json:"index"`
}

// SetSubmitting disables (On) or restores the submit control.
type SetSubmitting struct {
	On bool `json:"on"`
}

// InvokeSubmit asks the host to run the submission pipeline and report back
// with SubmitSucceeded or SubmitFailed carrying the same Epoch.
type InvokeSubmit struct {
	Epoch  int               `json:"epoch"`
	Record domain.LeadRecord `json:"record"`
}

// ShowMessage surfaces a notice to the user.
type ShowMessage struct {
	Text string `json:"text"`
}

// Track records an analytics event.
type Track struct {
	Name  string         `json:"name"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

func (ShowStep) Kind() string        { return "show_step" }
func (ShowProgress) Kind() string    { return "show_progress" }
func (ShowFieldErrors) Kind() string { return "show_field_errors" }
func (ClearErrors) Kind() string     { return "clear_errors" }
func (LockScroll) Kind() string      { return "lock_scroll" }
func (RestoreScroll) Kind() string   { return "restore_scroll" }
func (FocusFirstInput) Kind() string { return "focus_first_input" }
func (TrapFocus) Kind() string       { return "trap_focus" }
func (MoveFocus) Kind() string       { return "move_focus" }
func (SetSubmitting) Kind() string   { return "set_submitting" }
func (InvokeSubmit) Kind() string    { return "invoke_submit" }
func (ShowMessage) Kind() string     { return "show_message" }
func (Track) Kind() string           { return "track" }

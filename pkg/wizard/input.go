package wizard

import "github.com/guihenriquebr/sefra/pkg/domain"

// Input is an event fed to the controller.
type Input interface {
	inputName() string
}

// Open shows the modal. Source names the trigger (e.g. "hero-simular").
type Open struct {
	Source string
}

// Next validates the current step and advances.
type Next struct {
	Values map[string]string
}

// Prev goes back one step without validation.
type Prev struct{}

// Submit validates the last input step and starts the submission.
type Submit struct {
	Values map[string]string
}

// SubmitSucceeded reports the pipeline outcome for the submission started under Epoch.
type SubmitSucceeded struct {
	Epoch  int
	LeadID domain.LeadID
}

// SubmitFailed reports a failed submission started under Epoch.
type SubmitFailed struct {
	Epoch int
	Err   error
}

// Close hides the modal and discards the record.
type Close struct{}

// KeyDown is a keyboard event inside the page. Escape closes the modal;
// Tab moves focus within the modal boundary. Focused is the index of the
// focused element among Focusable elements of the modal.
type KeyDown struct {
	Key       string
	Shift     bool
	Focused   int
	Focusable int
}

// OverlayClick is a click on the modal background.
type OverlayClick struct{}

func (Open) inputName() string            { return "open" }
func (Next) inputName() string            { return "next" }
func (Prev) inputName() string            { return "prev" }
func (Submit) inputName() string          { return "submit" }
func (SubmitSucceeded) inputName() string { return "submit_succeeded" }
func (SubmitFailed) inputName() string    { return "submit_failed" }
func (Close) inputName() string           { return "close" }
func (KeyDown) inputName() string         { return "keydown" }
func (OverlayClick) inputName() string    { return "overlay_click" }

// Name returns a stable name for logging.
func Name(in Input) string {
	if in == nil {
		return "<nil>"
	}
	return in.inputName()
}

package wizard

import (
	"fmt"
	"maps"
	"time"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/validator"
)

// MsgSubmitFailed is shown when the submission pipeline fails.
const MsgSubmitFailed = "Erro ao enviar formulário. Tente novamente ou entre em contato pelo WhatsApp."

// DefaultFocusDelay is the pause before the first input is focused after open.
const DefaultFocusDelay = 100 * time.Millisecond

// Controller applies inputs to wizard states for a given form.
type Controller struct {
	form       domain.Form
	now        func() time.Time
	focusDelay time.Duration
}

// Option configures the Controller.
type Option func(*Controller)

// WithClock overrides the clock used to stamp the capture time.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithFocusDelay overrides the initial focus delay.
func WithFocusDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.focusDelay = d
	}
}

// NewController creates a controller for form. The form must pass Check.
func NewController(form domain.Form, opts ...Option) (*Controller, error) {
	if err := form.Check(); err != nil {
		return nil, err
	}
	c := &Controller{
		form:       form,
		now:        time.Now,
		focusDelay: DefaultFocusDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Form returns the form driven by the controller.
func (c *Controller) Form() domain.Form {
	return c.form
}

// Progress returns the indicator for the state's current step.
func (c *Controller) Progress(state *domain.State) Progress {
	return ProgressFor(state.CurrentStep, c.form.TotalSteps())
}

// Apply computes the next state and the effects for in. The input state is
// never mutated.
//
// When a step fails validation the returned state carries the field
// annotations, the effects show them, and err is a *domain.ValidationError.
// Inputs that make no sense in the current state return
// domain.ErrInvalidTransition with the state unchanged.
func (c *Controller) Apply(state *domain.State, in Input) (*domain.State, []Effect, error) {
	if state == nil {
		return nil, nil, fmt.Errorf("%w: nil state", domain.ErrInvalidTransition)
	}
	next := state.Snapshot()

	switch in := in.(type) {
	case Open:
		return c.open(next, in)
	case Next:
		return c.next(next, in)
	case Prev:
		return c.prev(next)
	case Submit:
		return c.submit(next, in)
	case SubmitSucceeded:
		return c.succeeded(next, in)
	case SubmitFailed:
		return c.failed(next, in)
	case Close:
		return c.close(next)
	case KeyDown:
		return c.keyDown(next, in)
	case OverlayClick:
		if !next.IsOpen() {
			return next, nil, nil
		}
		return c.close(next)
	default:
		return state, nil, fmt.Errorf("%w: unsupported input %T", domain.ErrInvalidTransition, in)
	}
}

func invalid(state *domain.State, in Input) (*domain.State, []Effect, error) {
	return state, nil, fmt.Errorf("%w: %s while %s at step %d", domain.ErrInvalidTransition, Name(in), state.Status, state.CurrentStep)
}

func (c *Controller) open(s *domain.State, in Open) (*domain.State, []Effect, error) {
	if s.IsOpen() {
		return invalid(s, in)
	}
	s.Status = domain.StatusActive
	s.CurrentStep = 1
	s.Record = domain.NewLeadRecord()
	s.Errors = nil
	s.Message = ""
	s.LeadID = ""
	s.Epoch++

	attrs := map[string]any{}
	if in.Source != "" {
		attrs["source"] = in.Source
	}
	return s, []Effect{
		LockScroll{},
		ShowStep{Step: 1},
		ShowProgress{Progress: c.Progress(s)},
		FocusFirstInput{Delay: c.focusDelay},
		TrapFocus{Enabled: true},
		Track{Name: domain.EventLeadInitiated, Attrs: attrs},
	}, nil
}

// collect validates the values of the current step and, when all are valid,
// merges them into the record.
func (c *Controller) collect(s *domain.State, values map[string]string) ([]Effect, error) {
	step, ok := c.form.Step(s.CurrentStep)
	if !ok {
		return nil, fmt.Errorf("%w: no step %d", domain.ErrInvalidTransition, s.CurrentStep)
	}

	normalized := make(map[string]string, len(step.Fields))
	for _, field := range step.Fields {
		normalized[field.Name] = validator.Normalize(field, values[field.Name])
	}

	if errs := validator.ValidateStep(step, normalized); len(errs) > 0 {
		s.Errors = errs
		return []Effect{ShowFieldErrors{Errors: errs}}, &domain.ValidationError{Step: s.CurrentStep, Fields: errs}
	}

	s.Errors = nil
	s.Record = s.Record.Merge(normalized)
	return nil, nil
}

func (c *Controller) next(s *domain.State, in Next) (*domain.State, []Effect, error) {
	if s.Status != domain.StatusActive || s.CurrentStep >= c.form.TotalSteps() {
		return invalid(s, in)
	}
	if effects, err := c.collect(s, in.Values); err != nil {
		return s, effects, err
	}

	completed := s.CurrentStep
	s.CurrentStep++
	s.Message = ""
	return s, []Effect{
		ClearErrors{},
		ShowStep{Step: s.CurrentStep},
		ShowProgress{Progress: c.Progress(s)},
		Track{Name: domain.EventStepCompleted, Attrs: map[string]any{"step": completed}},
	}, nil
}

func (c *Controller) prev(s *domain.State) (*domain.State, []Effect, error) {
	if s.Status != domain.StatusActive || s.CurrentStep <= 1 {
		return invalid(s, Prev{})
	}
	s.CurrentStep--
	s.Errors = nil
	s.Message = ""
	return s, []Effect{
		ClearErrors{},
		ShowStep{Step: s.CurrentStep},
		ShowProgress{Progress: c.Progress(s)},
	}, nil
}

func (c *Controller) submit(s *domain.State, in Submit) (*domain.State, []Effect, error) {
	if s.Status == domain.StatusSubmitting {
		return s, nil, domain.ErrSubmitInProgress
	}
	if s.Status != domain.StatusActive || s.CurrentStep != c.form.TotalSteps() {
		return invalid(s, in)
	}
	if effects, err := c.collect(s, in.Values); err != nil {
		return s, effects, err
	}

	s.Status = domain.StatusSubmitting
	s.Message = ""
	s.Record.CapturedAt = c.now().UTC()
	if len(s.Acquisition) > 0 {
		s.Record.Acquisition = maps.Clone(s.Acquisition)
	}
	return s, []Effect{
		ClearErrors{},
		SetSubmitting{On: true},
		InvokeSubmit{Epoch: s.Epoch, Record: s.Record.Snapshot()},
	}, nil
}

// stale reports whether a pipeline result no longer applies: the modal was
// closed (or reopened) after the submission started.
func stale(s *domain.State, epoch int) bool {
	return s.Status != domain.StatusSubmitting || s.Epoch != epoch
}

func (c *Controller) succeeded(s *domain.State, in SubmitSucceeded) (*domain.State, []Effect, error) {
	if stale(s, in.Epoch) {
		return s, nil, nil
	}
	s.Status = domain.StatusSuccess
	s.CurrentStep = c.form.SuccessStep()
	s.LeadID = in.LeadID

	attrs := map[string]any{
		"source":  "simulator",
		"lead_id": string(in.LeadID),
	}
	for _, key := range []string{domain.FieldPropertyValue, domain.FieldTerm} {
		if v, ok := s.Record.Fields[key]; ok {
			attrs[key] = v
		}
	}
	return s, []Effect{
		SetSubmitting{On: false},
		ShowStep{Step: s.CurrentStep},
		Track{Name: domain.EventLeadSubmitted, Attrs: attrs},
	}, nil
}

func (c *Controller) failed(s *domain.State, in SubmitFailed) (*domain.State, []Effect, error) {
	if stale(s, in.Epoch) {
		return s, nil, nil
	}
	s.Status = domain.StatusActive
	s.Message = MsgSubmitFailed

	attrs := map[string]any{}
	if in.Err != nil {
		attrs["error"] = in.Err.Error()
	}
	return s, []Effect{
		SetSubmitting{On: false},
		ShowMessage{Text: MsgSubmitFailed},
		Track{Name: domain.EventLeadSubmitFailed, Attrs: attrs},
	}, nil
}

func (c *Controller) close(s *domain.State) (*domain.State, []Effect, error) {
	if !s.IsOpen() {
		return s, nil, nil
	}
	wasSubmitting := s.Status == domain.StatusSubmitting

	s.Status = domain.StatusClosed
	s.CurrentStep = 0
	s.Record = domain.NewLeadRecord()
	s.Errors = nil
	s.Message = ""
	s.LeadID = ""
	s.Epoch++

	effects := []Effect{
		ClearErrors{},
		TrapFocus{Enabled: false},
		RestoreScroll{},
	}
	if wasSubmitting {
		effects = append(effects, SetSubmitting{On: false})
	}
	return s, effects, nil
}

func (c *Controller) keyDown(s *domain.State, in KeyDown) (*domain.State, []Effect, error) {
	if !s.IsOpen() {
		return s, nil, nil
	}
	switch in.Key {
	case "Escape":
		return c.close(s)
	case "Tab":
		idx, wrapped := NextFocus(in.Focusable, in.Focused, in.Shift)
		if !wrapped {
			return s, nil, nil
		}
		return s, []Effect{MoveFocus{Index: idx}}, nil
	}
	return s, nil, nil
}

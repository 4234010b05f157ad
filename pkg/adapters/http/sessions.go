package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/guihenriquebr/sefra/pkg/acquisition"
	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/session"
	"github.com/guihenriquebr/sefra/pkg/wizard"
)

// maxStepBody bounds the request body of the session endpoints.
const maxStepBody = 64 << 10

// SessionView is the JSON representation of a session and the effects of the
// last operation.
type SessionView struct {
	Session  *domain.State   `json:"session"`
	Progress wizard.Progress `json:"progress"`
	Effects  []EffectView    `json:"effects,omitempty"`
}

// EffectView tags an effect with its kind.
type EffectView struct {
	Kind string        `json:"kind"`
	Data wizard.Effect `json:"data"`
}

type stepRequest struct {
	Source string            `json:"source,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

type inputRequest struct {
	Type      string `json:"type"`
	Key       string `json:"key,omitempty"`
	Shift     bool   `json:"shift,omitempty"`
	Focused   int    `json:"focused,omitempty"`
	Focusable int    `json:"focusable,omitempty"`
}

type errorView struct {
	Error  string            `json:"error"`
	Step   int               `json:"step,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) view(state *domain.State, effects []wizard.Effect) SessionView {
	v := SessionView{
		Session:  state,
		Progress: s.sessions.Controller().Progress(state),
	}
	for _, e := range effects {
		v.Effects = append(v.Effects, EffectView{Kind: e.Kind(), Data: e})
	}
	return v
}

// createSession starts a session with the acquisition parameters of the query
// string and opens the wizard.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decodeOptional(io.LimitReader(r.Body, maxStepBody), &req); err != nil {
		s.badRequest(w, err)
		return
	}
	state, err := s.sessions.Create(r.Context(), acquisition.Extract(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.sessions.Open(r.Context(), state.SessionID, req.Source)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(res.State, res.Effects))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(state, nil))
}

func (s *Server) nextStep(w http.ResponseWriter, r *http.Request) {
	s.withValues(w, r, s.sessions.Next)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	s.withValues(w, r, s.sessions.Submit)
}

func (s *Server) prevStep(w http.ResponseWriter, r *http.Request) {
	res, err := s.sessions.Prev(r.Context(), chi.URLParam(r, "id"))
	s.reply(w, r, res, err)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.sessions.Close(r.Context(), chi.URLParam(r, "id"))
	s.reply(w, r, res, err)
}

// input applies keyboard and overlay events.
func (s *Server) input(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeOptional(io.LimitReader(r.Body, maxStepBody), &req); err != nil {
		s.badRequest(w, err)
		return
	}
	var in wizard.Input
	switch req.Type {
	case "keydown":
		in = wizard.KeyDown{Key: req.Key, Shift: req.Shift, Focused: req.Focused, Focusable: req.Focusable}
	case "overlay_click":
		in = wizard.OverlayClick{}
	default:
		s.badRequest(w, fmt.Errorf("unknown input type %q", req.Type))
		return
	}
	res, err := s.sessions.Input(r.Context(), chi.URLParam(r, "id"), in)
	s.reply(w, r, res, err)
}

type valuesOp func(ctx context.Context, sessionID string, values map[string]string) (*session.Result, error)

func (s *Server) withValues(w http.ResponseWriter, r *http.Request, op valuesOp) {
	var req stepRequest
	if err := decodeOptional(io.LimitReader(r.Body, maxStepBody), &req); err != nil {
		s.badRequest(w, err)
		return
	}
	values, err := sanitizeFields(s.policy, req.Values)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	res, err := op(r.Context(), chi.URLParam(r, "id"), values)
	s.reply(w, r, res, err)
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, res *session.Result, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) && res != nil {
		view := s.view(res.State, res.Effects)
		writeJSON(w, http.StatusUnprocessableEntity, struct {
			errorView
			SessionView
		}{
			errorView:   errorView{Error: "validation failed", Step: vErr.Step, Fields: vErr.Fields},
			SessionView: view,
		})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(res.State, res.Effects))
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorView{Error: "validation failed", Step: vErr.Step, Fields: vErr.Fields})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorView{Error: "session not found"})
	case errors.Is(err, domain.ErrSubmitInProgress):
		writeJSON(w, http.StatusConflict, errorView{Error: "submission in progress"})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorView{Error: err.Error()})
	default:
		s.logger.ErrorContext(r.Context(), "session operation failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorView{Error: "internal error"})
	}
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorView{Error: err.Error()})
}

// decodeOptional decodes a JSON body into v. An empty body leaves v untouched.
func decodeOptional(r io.Reader, v any) error {
	err := json.NewDecoder(r).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("invalid JSON body: %w", err)
}

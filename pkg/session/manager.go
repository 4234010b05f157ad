package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guihenriquebr/sefra/internal/logging"
	"github.com/guihenriquebr/sefra/pkg/acquisition"
	"github.com/guihenriquebr/sefra/pkg/analytics"
	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/ports"
	"github.com/guihenriquebr/sefra/pkg/wizard"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// Submitter runs the submission pipeline for a finished record.
type Submitter interface {
	Submit(ctx context.Context, key string, record domain.LeadRecord) (domain.LeadID, error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// inflight is a running submission that Close can cancel.
type inflight struct {
	epoch  int
	cancel context.CancelFunc
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// Unused locks are garbage collected by reference counting.
type Manager struct {
	store      ports.SessionStore
	controller *wizard.Controller
	submitter  Submitter
	sink       ports.EventSink

	mu    sync.Mutex
	locks map[string]*lockEntry

	subMu   sync.Mutex
	pending map[string]inflight

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	newID   func() string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEventSink receives the analytics events emitted by the wizard.
func WithEventSink(sink ports.EventSink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithIDGenerator overrides the session ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a Manager. submitter may be nil, in which case every
// submission fails.
func NewManager(store ports.SessionStore, controller *wizard.Controller, submitter Submitter, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		controller: controller,
		submitter:  submitter,
		sink:       analytics.Nop{},
		locks:      make(map[string]*lockEntry),
		pending:    make(map[string]inflight),
		lockTTL:    DefaultLockTTL,
		logger:     logging.NewNop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Controller returns the wizard controller driving the sessions.
func (m *Manager) Controller() *wizard.Controller {
	return m.controller
}

// Result is the outcome of one session operation.
type Result struct {
	State   *domain.State
	Effects []wizard.Effect
}

// Create starts a closed session with the given acquisition parameters.
func (m *Manager) Create(ctx context.Context, params acquisition.Params) (*domain.State, error) {
	id := m.newID()
	state := domain.NewState(id)
	state.Acquisition = acquisition.Capture(nil, params)

	if err := m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Save(ctx, id, state)
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	m.logger.InfoContext(ctx, "session created", "session_id", id, "acquisition", len(state.Acquisition))
	return state, nil
}

// Get returns the stored session.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.store.Load(ctx, sessionID)
}

// Capture stores acquisition parameters for a session that has none yet.
func (m *Manager) Capture(ctx context.Context, sessionID string, params acquisition.Params) (*domain.State, error) {
	var out *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		state.Acquisition = acquisition.Capture(state.Acquisition, params)
		out = state
		return m.store.Save(ctx, sessionID, state)
	})
	return out, err
}

// Open shows the wizard.
func (m *Manager) Open(ctx context.Context, sessionID, source string) (*Result, error) {
	return m.apply(ctx, sessionID, wizard.Open{Source: source})
}

// Next validates the current step and advances.
func (m *Manager) Next(ctx context.Context, sessionID string, values map[string]string) (*Result, error) {
	return m.apply(ctx, sessionID, wizard.Next{Values: values})
}

// Prev goes back one step.
func (m *Manager) Prev(ctx context.Context, sessionID string) (*Result, error) {
	return m.apply(ctx, sessionID, wizard.Prev{})
}

// Close hides the wizard, discarding the record and canceling any running
// submission of the session.
func (m *Manager) Close(ctx context.Context, sessionID string) (*Result, error) {
	res, err := m.apply(ctx, sessionID, wizard.Close{})
	if err == nil {
		m.cancelInflight(sessionID)
	}
	return res, err
}

// Input applies an input that needs no host work (keyboard, overlay). An
// input that closes the wizard cancels the running submission.
func (m *Manager) Input(ctx context.Context, sessionID string, in wizard.Input) (*Result, error) {
	switch in.(type) {
	case wizard.Submit, wizard.SubmitSucceeded, wizard.SubmitFailed:
		return nil, fmt.Errorf("%w: %s is not a direct input", domain.ErrInvalidTransition, wizard.Name(in))
	}
	res, err := m.apply(ctx, sessionID, in)
	if err == nil && !res.State.IsOpen() {
		m.cancelInflight(sessionID)
	}
	return res, err
}

// Submit validates the last step and runs the submission pipeline. It returns
// once the pipeline has finished, with the state reflecting the outcome. A
// failed submission is not an error: the state carries the user message.
func (m *Manager) Submit(ctx context.Context, sessionID string, values map[string]string) (*Result, error) {
	started, err := m.apply(ctx, sessionID, wizard.Submit{Values: values})
	if err != nil {
		return started, err
	}

	var invoke *wizard.InvokeSubmit
	for _, e := range started.Effects {
		if e, ok := e.(wizard.InvokeSubmit); ok {
			invoke = &e
		}
	}
	if invoke == nil {
		return started, nil
	}

	subCtx, cancel := context.WithCancel(ctx)
	m.track(sessionID, invoke.Epoch, cancel)
	defer m.untrack(sessionID, invoke.Epoch)

	var outcome wizard.Input
	leadID, err := m.send(subCtx, sessionID, invoke.Record)
	if err != nil {
		m.logger.WarnContext(ctx, "submission failed", "session_id", sessionID, "error", err)
		outcome = wizard.SubmitFailed{Epoch: invoke.Epoch, Err: err}
	} else {
		outcome = wizard.SubmitSucceeded{Epoch: invoke.Epoch, LeadID: leadID}
	}

	// The result is recorded even if the caller went away meanwhile.
	finished, err := m.apply(context.WithoutCancel(ctx), sessionID, outcome)
	if err != nil {
		return nil, err
	}
	finished.Effects = append(started.Effects, finished.Effects...)
	return finished, nil
}

func (m *Manager) send(ctx context.Context, sessionID string, record domain.LeadRecord) (domain.LeadID, error) {
	if m.submitter == nil {
		return "", &domain.TransportError{Message: "no submission transport configured"}
	}
	return m.submitter.Submit(ctx, sessionID, record)
}

// Delete closes and removes the session.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.cancelInflight(sessionID)
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// apply loads the session, applies in, persists the new state and emits
// tracking effects. Validation failures are persisted too, along with the
// field annotations, and returned with the *domain.ValidationError.
func (m *Manager) apply(ctx context.Context, sessionID string, in wizard.Input) (*Result, error) {
	var res *Result
	var applyErr error

	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}

		next, effects, err := m.controller.Apply(state, in)
		var vErr *domain.ValidationError
		if err != nil && !errors.As(err, &vErr) {
			return err
		}
		applyErr = err

		if err := m.store.Save(ctx, sessionID, next); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		res = &Result{State: next, Effects: effects}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.DebugContext(ctx, "session input applied",
		"session_id", sessionID,
		"input", wizard.Name(in),
		"status", res.State.Status,
		"step", res.State.CurrentStep,
	)
	for _, e := range res.Effects {
		if t, ok := e.(wizard.Track); ok {
			m.sink.Record(ctx, t.Name, withSession(t.Attrs, sessionID))
		}
	}
	return res, applyErr
}

func withSession(attrs map[string]any, sessionID string) map[string]any {
	out := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out["session_id"] = sessionID
	return out
}

func (m *Manager) track(sessionID string, epoch int, cancel context.CancelFunc) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.pending[sessionID] = inflight{epoch: epoch, cancel: cancel}
}

func (m *Manager) untrack(sessionID string, epoch int) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if p, ok := m.pending[sessionID]; ok && p.epoch == epoch {
		p.cancel()
		delete(m.pending, sessionID)
	}
}

func (m *Manager) cancelInflight(sessionID string) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if p, ok := m.pending[sessionID]; ok {
		p.cancel()
		delete(m.pending, sessionID)
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "session:"+sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

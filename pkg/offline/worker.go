package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/guihenriquebr/sefra/internal/logging"
	"github.com/guihenriquebr/sefra/internal/metrics"
	"github.com/guihenriquebr/sefra/pkg/analytics"
	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/ports"
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("offline worker stopped")

// Phase is the lifecycle position of a Worker.
type Phase string

const (
	PhaseNew       Phase = "new"
	PhaseInstalled Phase = "installed"
	PhaseActive    Phase = "active"
)

// Doer performs network requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultSyncLockTTL bounds the distributed lock held while draining the queue.
const DefaultSyncLockTTL = time.Minute

// Worker is the offline cache layer. Create with New and start with Run.
type Worker struct {
	origin      *url.URL
	manifest    []string
	gens        domain.Generations
	cache       ports.CacheStore
	queue       ports.PendingQueue
	transport   ports.LeadTransport
	network     Doer
	locker      ports.DistributedLocker
	syncLockTTL time.Duration
	maxBody     int64
	sink        ports.EventSink
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time

	cmds  chan command
	done  chan struct{}
	phase Phase // owned by the Run goroutine
}

type command struct {
	ctx   context.Context
	run   func(ctx context.Context) (any, error)
	reply chan result
}

type result struct {
	val any
	err error
}

// Option configures the Worker.
type Option func(*Worker)

// WithManifest replaces DefaultManifest.
func WithManifest(paths []string) Option {
	return func(w *Worker) {
		w.manifest = paths
	}
}

// WithVersion names the generations owned by this worker.
func WithVersion(prefix, version string) Option {
	return func(w *Worker) {
		w.gens = domain.GenerationsFor(prefix, version)
	}
}

// WithQueue sets the pending submission queue drained by Sync.
func WithQueue(q ports.PendingQueue) Option {
	return func(w *Worker) {
		w.queue = q
	}
}

// WithTransport sets the transport used to re-post queued submissions.
func WithTransport(t ports.LeadTransport) Option {
	return func(w *Worker) {
		w.transport = t
	}
}

// WithNetwork replaces the HTTP client used to reach the origin.
func WithNetwork(d Doer) Option {
	return func(w *Worker) {
		w.network = d
	}
}

// WithLocker guards Sync with a distributed lock so one replica drains at a time.
func WithLocker(l ports.DistributedLocker) Option {
	return func(w *Worker) {
		w.locker = l
	}
}

// WithEventSink receives retry events.
func WithEventSink(s ports.EventSink) Option {
	return func(w *Worker) {
		w.sink = s
	}
}

// WithMetrics records cache outcomes, sync results and the queue depth.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = l
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(w *Worker) {
		w.maxBody = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

// New creates a worker for origin (scheme and host, e.g. "http://localhost:3000")
// backed by cache.
func New(origin string, cache ports.CacheStore, opts ...Option) (*Worker, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid origin %q: scheme and host are required", origin)
	}
	if cache == nil {
		return nil, errors.New("offline worker requires a cache store")
	}

	w := &Worker{
		origin:      &url.URL{Scheme: u.Scheme, Host: u.Host},
		manifest:    DefaultManifest,
		gens:        domain.GenerationsFor(DefaultPrefix, DefaultVersion),
		cache:       cache,
		network:     &http.Client{Timeout: 30 * time.Second},
		syncLockTTL: DefaultSyncLockTTL,
		maxBody:     DefaultMaxBodySize,
		sink:        analytics.Nop{},
		logger:      logging.NewNop(),
		now:         time.Now,
		cmds:        make(chan command),
		done:        make(chan struct{}),
		phase:       PhaseNew,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Origin returns the origin the worker intercepts.
func (w *Worker) Origin() *url.URL {
	u := *w.origin
	return &u
}

// Generations returns the cache names owned by this worker version.
func (w *Worker) Generations() domain.Generations {
	return w.gens
}

// Run executes commands until ctx is canceled. It must be called exactly once.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)
	w.logger.InfoContext(ctx, "offline worker started", "origin", w.origin.String(), "static", w.gens.Static)

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "offline worker stopped")
			return nil
		case cmd := <-w.cmds:
			val, err := cmd.run(cmd.ctx)
			cmd.reply <- result{val: val, err: err}
		}
	}
}

// call runs fn on the worker goroutine.
func (w *Worker) call(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	cmd := command{ctx: ctx, run: fn, reply: make(chan result, 1)}
	select {
	case w.cmds <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, ErrStopped
	}

	select {
	case res := <-cmd.reply:
		return res.val, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Phase returns the current lifecycle phase.
func (w *Worker) Phase(ctx context.Context) (Phase, error) {
	v, err := w.call(ctx, func(context.Context) (any, error) {
		return w.phase, nil
	})
	if err != nil {
		return "", err
	}
	return v.(Phase), nil
}

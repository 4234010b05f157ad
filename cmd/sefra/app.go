package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/guihenriquebr/sefra/internal/adapters/file"
	redisadapter "github.com/guihenriquebr/sefra/internal/adapters/redis"
	"github.com/guihenriquebr/sefra/internal/adapters/sqlite"
	"github.com/guihenriquebr/sefra/internal/config"
	"github.com/guihenriquebr/sefra/internal/logging"
	"github.com/guihenriquebr/sefra/internal/metrics"
	"github.com/guihenriquebr/sefra/pkg/adapters/memory"
	"github.com/guihenriquebr/sefra/pkg/analytics"
	"github.com/guihenriquebr/sefra/pkg/persistence/middleware"
	"github.com/guihenriquebr/sefra/pkg/ports"
	"github.com/guihenriquebr/sefra/pkg/session"
	"github.com/guihenriquebr/sefra/pkg/submission"
	"github.com/guihenriquebr/sefra/pkg/wizard"
)

// app holds the configured dependencies shared by the commands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	redis   *backend.Client
	closers []io.Closer
}

// newApp loads the configuration and applies the persistent flag overrides.
func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, nil)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-file"); v != "" {
		cfg.Log.File = v
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	var out io.Writer = cmd.ErrOrStderr()
	if cfg.Log.File != "" {
		w := logging.NewRotating(logging.FileOptions{Path: cfg.Log.File})
		a.closers = append(a.closers, w)
		out = w
	}
	a.logger = logging.New(level, out)

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)
	return a, nil
}

// Close releases the backends opened by the app.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func (a *app) redisClient() *backend.Client {
	if a.redis == nil {
		r := a.cfg.Storage.Redis
		a.redis = redisadapter.NewClient(r.Addr, r.Password, r.DB)
		a.closers = append(a.closers, a.redis)
	}
	return a.redis
}

func (a *app) usesRedis() bool {
	s := a.cfg.Storage
	return s.Sessions == config.BackendRedis || s.Queue == config.BackendRedis || s.Cache == config.BackendRedis
}

// locker returns the distributed locker when redis is configured.
func (a *app) locker() ports.DistributedLocker {
	if !a.usesRedis() {
		return nil
	}
	return redisadapter.NewLocker(a.redisClient(), a.cfg.Storage.Redis.Prefix)
}

// sessionStore opens the configured store and wraps it with the PII and
// encryption middlewares when enabled.
func (a *app) sessionStore() (ports.SessionStore, error) {
	var store ports.SessionStore
	switch a.cfg.Storage.Sessions {
	case config.BackendFile:
		store = file.New(filepath.Join(a.cfg.Storage.Dir, "sessions"))
	case config.BackendRedis:
		store = redisadapter.NewFromClient(a.redisClient(),
			redisadapter.WithPrefix(a.cfg.Storage.Redis.Prefix+"session:"),
			redisadapter.WithTTL(a.cfg.Storage.SessionTTL),
		)
	default:
		store = memory.NewStore()
	}

	var mws []middleware.Middleware
	if a.cfg.Security.MaskPII {
		mw, err := middleware.NewPIIMiddleware(a.cfg.Security.PIIPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	active, fallback, err := a.cfg.Security.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), nil
}

func (a *app) queue() (ports.PendingQueue, error) {
	switch a.cfg.Storage.Queue {
	case config.BackendFile:
		return file.NewQueue(filepath.Join(a.cfg.Storage.Dir, "pending.jsonl")), nil
	case config.BackendSQLite:
		q, err := sqlite.Open(a.cfg.Storage.SQLitePath, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, q)
		return q, nil
	case config.BackendRedis:
		return redisadapter.NewQueue(a.redisClient(), a.cfg.Storage.Redis.Prefix), nil
	default:
		return memory.NewQueue(), nil
	}
}

func (a *app) cache() ports.CacheStore {
	switch a.cfg.Storage.Cache {
	case config.BackendFile:
		return file.NewCache(filepath.Join(a.cfg.Storage.Dir, "cache"))
	case config.BackendRedis:
		return redisadapter.NewCache(a.redisClient(), a.cfg.Storage.Redis.Prefix)
	default:
		return memory.NewCache()
	}
}

// events fans out to the log, the prometheus counter and the pixel mapping.
func (a *app) events() ports.EventSink {
	logSink := analytics.LogSink{Logger: a.logger}
	return analytics.Multi{
		logSink,
		analytics.MetricsSink{Counter: a.metrics.Events},
		analytics.PixelSink{Next: logSink},
	}
}

func (a *app) transport(endpoint string) *submission.HTTPTransport {
	t := submission.NewHTTPTransport(endpoint)
	t.Timeout = a.cfg.Submission.Timeout
	return t
}

func (a *app) pipeline(t ports.LeadTransport) (*submission.Pipeline, error) {
	q, err := a.queue()
	if err != nil {
		return nil, err
	}
	return submission.New(t,
		submission.WithQueue(q),
		submission.WithEventSink(a.events()),
		submission.WithMetrics(a.metrics),
		submission.WithLogger(a.logger),
	), nil
}

// manager builds the session manager over the configured store, form and
// submitter.
func (a *app) manager(store ports.SessionStore, submitter session.Submitter) (*session.Manager, error) {
	form, err := config.LoadForm(a.cfg.FormFile)
	if err != nil {
		return nil, err
	}
	ctl, err := wizard.NewController(form)
	if err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	opts := []session.Option{
		session.WithLogger(a.logger),
		session.WithEventSink(a.events()),
	}
	if l := a.locker(); l != nil {
		opts = append(opts, session.WithLocker(l))
	}
	return session.NewManager(store, ctl, submitter, opts...), nil
}

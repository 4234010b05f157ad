package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/offline"
)

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Run the offline cache worker as a caching proxy in front of the site",
	Long: `Installs the static manifest from the origin, activates the worker and
serves the proxy with its control routes. Queued lead submissions are retried
on every sync interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		applyOfflineFlags(cmd, a)
		interval, _ := cmd.Flags().GetDuration("sync-interval")

		w, err := newWorker(a)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return w.Run(gctx) })

		if err := w.Install(gctx); err != nil {
			phase, perr := w.Phase(gctx)
			if perr != nil || phase == offline.PhaseNew {
				cancel()
				_ = g.Wait()
				return err
			}
			a.logger.Warn("install failed, serving the installed offline cache", "error", err)
		}
		if err := w.Activate(gctx); err != nil {
			cancel()
			_ = g.Wait()
			return err
		}

		if interval > 0 {
			g.Go(func() error {
				syncLoop(gctx, a, w, interval)
				return nil
			})
		}

		srv := &http.Server{Addr: a.cfg.Offline.Listen, Handler: w.Handler()}
		err = listenAndServe(gctx, a, srv)
		cancel()
		return errors.Join(err, g.Wait())
	},
}

func syncLoop(ctx context.Context, a *app, w *offline.Worker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := w.Sync(ctx, domain.SyncTagLead)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Warn("background sync failed", "error", err)
				}
				continue
			}
			if report.Attempted > 0 {
				a.logger.Info("background sync finished", "sent", report.Sent, "failed", report.Failed)
			}
		}
	}
}

func newWorker(a *app) (*offline.Worker, error) {
	q, err := a.queue()
	if err != nil {
		return nil, err
	}
	opts := []offline.Option{
		offline.WithVersion(a.cfg.Offline.Prefix, a.cfg.Offline.Version),
		offline.WithQueue(q),
		offline.WithTransport(a.transport(a.cfg.LeadEndpoint())),
		offline.WithEventSink(a.events()),
		offline.WithMetrics(a.metrics),
		offline.WithLogger(a.logger),
	}
	if l := a.locker(); l != nil {
		opts = append(opts, offline.WithLocker(l))
	}
	return offline.New(a.cfg.OfflineOrigin(), a.cache(), opts...)
}

func applyOfflineFlags(cmd *cobra.Command, a *app) {
	if cmd.Flags().Changed("origin") {
		a.cfg.Offline.Origin, _ = cmd.Flags().GetString("origin")
	}
	if cmd.Flags().Changed("listen") {
		a.cfg.Offline.Listen, _ = cmd.Flags().GetString("listen")
	}
}

// withWorker runs fn against a started worker and stops it afterwards.
func withWorker(ctx context.Context, a *app, fn func(ctx context.Context, w *offline.Worker) error) error {
	w, err := newWorker(a)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })

	err = fn(gctx, w)
	cancel()
	if werr := g.Wait(); werr != nil {
		return errors.Join(err, fmt.Errorf("worker: %w", werr))
	}
	return err
}

func init() {
	rootCmd.AddCommand(offlineCmd)
	offlineCmd.PersistentFlags().String("origin", "", "Origin whose requests are cached (default: the local server)")
	offlineCmd.Flags().String("listen", ":8080", "Address of the caching proxy")
	offlineCmd.Flags().Duration("sync-interval", time.Minute, "Interval between background sync runs (0 disables)")
}

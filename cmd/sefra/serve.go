package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	sefrahttp "github.com/guihenriquebr/sefra/pkg/adapters/http"
	pii "github.com/guihenriquebr/sefra/pkg/persistence/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the landing page, the lead endpoint and the simulator API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if cmd.Flags().Changed("port") {
			a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("root") {
			a.cfg.Server.Root, _ = cmd.Flags().GetString("root")
		}

		store, err := a.sessionStore()
		if err != nil {
			return err
		}
		pipeline, err := a.pipeline(a.transport(a.cfg.LeadEndpoint()))
		if err != nil {
			return err
		}
		manager, err := a.manager(store, pipeline)
		if err != nil {
			return err
		}
		patterns, err := pii.CompilePatterns(a.cfg.Security.PIIPatterns)
		if err != nil {
			return err
		}

		server, err := sefrahttp.New(a.cfg.Server.Root,
			sefrahttp.WithSessions(manager),
			sefrahttp.WithEventSink(a.events()),
			sefrahttp.WithMetrics(a.metrics, a.registry),
			sefrahttp.WithLogger(a.logger),
			sefrahttp.WithLeadDelay(a.cfg.Server.LeadDelay),
			sefrahttp.WithPIIPatterns(patterns),
		)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
			Handler: server.Handler(),
		}
		return listenAndServe(cmd.Context(), a, srv)
	},
}

// listenAndServe runs srv until SIGINT or SIGTERM and then shuts it down
// within the configured timeout.
func listenAndServe(ctx context.Context, a *app, srv *http.Server) error {
	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		a.logger.Info("server listening", "addr", srv.Addr, "root", a.cfg.Server.Root)
		serverErrors <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		a.logger.Info("shutting down", "timeout", a.cfg.Server.ShutdownTimeout)

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("graceful shutdown did not complete", "error", err)
			return srv.Close()
		}
		a.logger.Info("server stopped gracefully")
		return nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 3000, "Port to listen on (overrides PORT)")
	serveCmd.Flags().String("root", ".", "Directory with the site files")
}

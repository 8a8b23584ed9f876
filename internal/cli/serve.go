package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/api"
	"github.com/notifyhub/pricewatch/internal/scheduler"
)

// NewServeCmd runs the pipeline on a cron schedule and serves health,
// metrics and run endpoints until SIGINT or SIGTERM.
func NewServeCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on a schedule and serve health and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}

			sched, err := scheduler.New(cfg.Schedule.Cron, app.Controller, logger.Named("scheduler"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// ---- scheduler ----
			schedDone := make(chan struct{})
			go func() {
				sched.Run(ctx, cfg.Schedule.RunOnStart)
				close(schedDone)
			}()

			// ---- HTTP server ----
			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      api.NewRouter(sched, app.Registry, logger.Named("http")),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}
			srvErr := make(chan error, 1)
			go func() {
				logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("schedule", cfg.Schedule.Cron))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					srvErr <- err
				}
			}()

			// ---- graceful shutdown ----
			select {
			case <-ctx.Done():
				logger.Info("shutdown signal received")
			case err = <-srvErr:
				logger.Error("server error", zap.Error(err))
				stop()
			}

			// 1. Stop accepting new HTTP requests.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", zap.Error(err))
			}

			// 2. Wait for the in-flight run, if any.
			select {
			case <-schedDone:
			case <-shutdownCtx.Done():
				logger.Warn("in-flight run did not finish before shutdown timeout")
			}

			logger.Info("server stopped cleanly")
			return err
		},
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/config"
	"github.com/passgate/passgate/internal/httpapi"
	"github.com/passgate/passgate/internal/observability"
	"github.com/passgate/passgate/internal/store"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API, the metrics and health endpoints, and the
expired token sweeper. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.String("http-addr", "", "HTTP API listen address")
	flags.String("metrics-addr", "", "metrics and health listen address (empty disables)")
	flags.Duration("token-ttl", 0, "access token lifetime (0 disables expiry)")
	flags.Duration("sweep-interval", 0, "period between expired token sweeps")
	flags.Bool("database-migrate", false, "apply pending migrations before serving")

	return cmd
}

// runServe runs until ctx is cancelled or a server fails.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if overrides := config.EnvOverrides(); len(overrides) > 0 {
		logger.Debug("environment overrides", "variables", overrides)
	}

	if cfg.Database.Migrate {
		if err := migrateUp(cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("error closing database", "error", err)
		}
	}()

	stack, err := buildAuth(cfg, backend, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := stack.sweeper.Start(ctx); err != nil {
		return err
	}
	defer stack.sweeper.Stop()

	var httpOpts []httpapi.Option
	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr,
			observability.WithReadiness(backend.Ping),
			observability.WithRegistration(auth.RegisterMetrics),
			observability.WithLogger(logger))
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("METRICS_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		httpOpts = append(httpOpts, httpapi.WithMetrics(obsServer.Metrics()))
	}

	httpOpts = append(httpOpts,
		httpapi.WithLogger(logger),
		httpapi.WithBodyLimit(cfg.HTTP.BodyLimit),
		httpapi.WithTimeouts(cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout))
	api, err := httpapi.New(stack.service, httpOpts...)
	if err != nil {
		return err
	}

	httpErrCh := make(chan error, 1)
	go func() {
		defer close(httpErrCh)
		if err := api.Listen(cfg.HTTP.Addr); err != nil {
			httpErrCh <- err
		}
	}()

	logger.Info("passgate ready",
		"engine", string(backend.Engine),
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-httpErrCh:
		logger.Error("http server failed", "error", serveErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}

// monitorServerErrors cancels the process context when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Error("server error, triggering shutdown", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

// migrateUp applies every pending migration.
func migrateUp(databaseURL string, logger *slog.Logger) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("error closing migrator", "error", err)
		}
	}()

	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		return err
	}
	logger.Info("migrations applied", "engine", string(m.Engine()), "count", len(pending))
	return nil
}

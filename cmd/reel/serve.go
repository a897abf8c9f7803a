package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/reel"
	"github.com/xraph/reel/api"
	audithook "github.com/xraph/reel/audit_hook"
	"github.com/xraph/reel/observability"
)

// shutdownTimeout bounds graceful HTTP shutdown. In-flight analyses can run
// for minutes; they are cut off after this.
const shutdownTimeout = 30 * time.Second

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if listenAddr != "" {
			cfg.Listen = listenAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := setupTracing(ctx, cfg.Tracing)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()

		opts := []reel.Option{
			reel.WithPlugin(audithook.New(audithook.NewSlogRecorder(logger), audithook.WithLogger(logger))),
		}
		var apiOpts []api.Option
		if cfg.Metrics.Enabled {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			opts = append(opts, reel.WithPlugin(
				observability.NewMetricsExtension(observability.NewPrometheusFactory(reg), reel.IsClientError),
			))
			apiOpts = append(apiOpts, api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}
		if cfg.Auth.AdminToken != "" {
			apiOpts = append(apiOpts, api.WithAdminToken(cfg.Auth.AdminToken))
		}
		apiOpts = append(apiOpts, api.WithLogger(logger))

		engine, err := openEngine(ctx, cfg, logger, opts...)
		if err != nil {
			return err
		}
		defer func() {
			if err := engine.Stop(); err != nil {
				logger.Warn("engine stop failed", "error", err)
			}
		}()

		srv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           api.NewHandler(engine, apiOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.Listen)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

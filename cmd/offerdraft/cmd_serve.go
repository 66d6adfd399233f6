package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/offerdraft/internal/server"
	"github.com/joelkehle/offerdraft/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the offer form and JSON API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []server.Option{
		server.WithLogger(logger.Named("http")),
		server.WithWebDir(cfg.Server.WebDir),
	}
	if cfg.Server.RateLimit > 0 {
		opts = append(opts, server.WithRateLimiter(server.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)))
	}
	if a.ledger != nil {
		opts = append(opts, server.WithStats(a.ledger))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(a.pipeline, a.engine, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("offerdraft listening", zap.String("addr", cfg.Server.Addr), zap.String("web_dir", cfg.Server.WebDir))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

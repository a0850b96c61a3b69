package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"dealdesk/internal/platform/config"
	"dealdesk/internal/platform/httpserver"
	"dealdesk/internal/platform/logger"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		logger.New("info").Error("dealdesk exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.New(cfg.LogLevel)
	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	srv := httpserver.New(cfg.Addr, a.handler)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting dealdesk", "addr", cfg.Addr)
		return httpserver.ServeUntil(gctx, srv, cfg.ShutdownTimeout)
	})
	if a.relay != nil {
		g.Go(func() error {
			log.Info("outbox relay started", "topic", cfg.Kafka.Topic)
			return a.relay.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

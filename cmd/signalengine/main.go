// cmd/signalengine runs the live regime signal service: it consumes bar
// streams from Redis, computes channel and trend-quality indicators, trades
// the regime strategy against a paper broker, and exposes metrics plus a
// WebSocket observer gateway.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"regime-systemv1/config"
	"regime-systemv1/internal/logger"
	"regime-systemv1/internal/signalengine"
)

func main() {
	logger.Init("signalengine", slog.LevelInfo)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	svc, err := signalengine.New(cfg)
	if err != nil {
		slog.Error("init failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

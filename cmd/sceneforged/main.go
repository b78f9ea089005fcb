package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"sceneforge/internal/config"
	"sceneforge/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	w, store, err := buildWorker(cfg, logger)
	if err != nil {
		logger.Error("assemble worker", logging.Error(err))
		return
	}
	defer store.Close()

	if err := w.Start(ctx); err != nil {
		logger.Error("start worker", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("sceneforged shutting down")
	w.Stop()
}

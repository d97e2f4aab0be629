package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/neorisk-server/internal/api"
	"github.com/neorisk-server/internal/app"
	"github.com/neorisk-server/internal/natsbridge"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, app.Options{ConfigFile: *configFile})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer application.Close()

	logger := application.Logger
	cfg := application.Config.GetConfig()

	// Optional NATS chat transport
	if cfg.NATS.URL != "" {
		bridge := natsbridge.New(cfg.NATS, application.Shell, logger)
		if err := bridge.Connect(); err != nil {
			logger.WithError(err).Fatal("Failed to start NATS bridge")
		}
		if err := bridge.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start NATS bridge")
		}
		defer bridge.Close()
	}

	server := api.NewServer(application.Config, application.Assessor, application.Shell, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}

	logger.Info("Server stopped")
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/neorisk-server/internal/app"
	"github.com/neorisk-server/internal/mcp"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, app.Options{ConfigFile: *configFile, StdoutReserved: true})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer application.Close()

	logger := application.Logger
	cfg := application.Config.GetConfig()

	server := mcp.NewServer(cfg.MCP, application.Assessor, application.Shell, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping MCP server...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server failed")
		return
	}

	logger.Info("MCP server stopped")
}

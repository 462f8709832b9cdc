package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-streamer/src/config"
	"market-streamer/src/logger"
)

const shutdownTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)
	defer appLogger.Sync()

	// 4. Setup components
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := setupApp(ctx, conf.MConfig, appLogger)

	// 5. Start servers (bind failures are fatal)
	startServers(ctx, app, conf.MConfig, appLogger)

	// 6. Wait for a termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received %v, shutting down...", sig)

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	stopServers(shutdownCtx, app, appLogger)
	cancel()

	appLogger.Info("Shutdown complete.")
}

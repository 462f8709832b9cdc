package main

import (
	"context"
	"net"
	"strconv"

	"market-streamer/src/logger"
	"market-streamer/src/models"
)

// -----------------------------------------------------------------------------

// startServers binds the streaming server and the gRPC control server
func startServers(ctx context.Context, a *app, config *models.MConfig, appLogger *logger.Logger) {

	// 1. Streaming server (HTTP + WebSocket), starts the scheduler
	if err := a.Server.Start(ctx); err != nil {
		appLogger.Critical("Streaming server failed to start: %v", err)
	}

	// 2. gRPC Control Server
	if a.Control != nil {
		addr := net.JoinHostPort(config.GrpcHost, strconv.Itoa(config.GrpcPort))
		if err := a.Control.Listen(addr); err != nil {
			appLogger.Critical("%v", err)
		}
	}
}

// -----------------------------------------------------------------------------

// stopServers tears everything down in dependency order
func stopServers(ctx context.Context, a *app, appLogger *logger.Logger) {

	// 1. Timers, client sessions, HTTP listener
	if err := a.Server.Stop(ctx); err != nil {
		appLogger.Error("Streaming server shutdown: %v", err)
	}

	// 2. Control plane
	if a.Control != nil {
		a.Control.Stop()
	}

	// 3. Archive: flush queued ticks, then release the store
	if a.Archive != nil {
		a.Archive.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			appLogger.Error("Tick store close: %v", err)
		}
	}
}

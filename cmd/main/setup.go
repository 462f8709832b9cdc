package main

import (
	"context"

	"market-streamer/src/grpc_control"
	"market-streamer/src/interfaces"
	"market-streamer/src/logger"
	"market-streamer/src/metrics"
	"market-streamer/src/models"
	"market-streamer/src/registry"
	"market-streamer/src/scheduler"
	"market-streamer/src/server"
	"market-streamer/src/simulation"
	"market-streamer/src/storage"
	"market-streamer/src/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds every long-lived component built at startup.
type app struct {
	Registry  *registry.Registry
	Engine    *simulation.Engine
	Hub       *server.Hub
	Scheduler *scheduler.BroadcastScheduler
	Server    *server.StreamServer
	Control   *grpc_control.Server // nil when grpc_port is 0
	Store     interfaces.ITickStore
	Archive   *storage.ArchiveWriter
}

// -----------------------------------------------------------------------------

// setupApp wires registry, engine, hub, scheduler and the optional archive
func setupApp(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) *app {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	a := &app{
		Registry: registry.New(),
		Engine:   simulation.NewEngine(config.Simulation),
	}

	a.Hub = server.NewHub(a.Registry, a.Engine, config.Streaming, m, appLogger.Named("Hub"))
	a.Scheduler = scheduler.NewBroadcastScheduler(a.Registry, a.Engine, a.Hub, config.Streaming, m, appLogger.Named("Scheduler"))

	if config.Streaming.MarketHoursOnly {
		a.Scheduler.Sessions = utils.NewMarketHours(appLogger.Named("MarketHours"))
		appLogger.Info("Ticks restricted to exchange trading sessions")
	}

	setupArchive(ctx, a, config, appLogger)

	a.Server = server.NewStreamServer(config, appLogger.Named("StreamServer"), server.Options{
		Hub:       a.Hub,
		Scheduler: a.Scheduler,
		Store:     a.Store,
		Gatherer:  promRegistry,
	})

	if config.GrpcPort != 0 {
		svc := grpc_control.NewControlService(a.Registry, a.Engine, a.Hub, m, appLogger.Named("ControlService"))
		a.Control = grpc_control.NewServer(svc, appLogger.Named("ControlServer"))
	}

	return a
}

// -----------------------------------------------------------------------------

// setupArchive opens the tick store and attaches the async writer
func setupArchive(ctx context.Context, a *app, config *models.MConfig, appLogger *logger.Logger) {
	store, err := storage.OpenTickStore(&config.Storage, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init tick store: %v", err)
		return
	}
	if store == nil {
		appLogger.Info("Tick archive disabled")
		return
	}

	a.Store = store
	a.Archive = storage.NewArchiveWriter(store, config.Storage, appLogger.Named("ArchiveWriter"))
	a.Archive.Start(ctx)
	a.Scheduler.Archive = a.Archive
	appLogger.Info("Tick archive enabled (%s, retention %dh)", config.Storage.DBType, config.Storage.RetentionHours)
}

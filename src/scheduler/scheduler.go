// Package scheduler runs the periodic tick and heartbeat cycles.
package scheduler

import (
	"context"
	"sync"
	"time"

	"market-streamer/src/interfaces"
	"market-streamer/src/logger"
	"market-streamer/src/metrics"
	"market-streamer/src/models"
	"market-streamer/src/registry"
	"market-streamer/src/simulation"
)

// -----------------------------------------------------------------------------
// BroadcastScheduler
// -----------------------------------------------------------------------------

type BroadcastScheduler struct {
	Registry *registry.Registry
	Engine   *simulation.Engine
	Out      interfaces.IDeliverer
	Logger   *logger.Logger
	Metrics  *metrics.Metrics

	// Optional collaborators
	Sessions interfaces.ISessionFilter
	Archive  interfaces.ITickSink

	tickInterval      time.Duration
	heartbeatInterval time.Duration
	now               func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// -----------------------------------------------------------------------------

func NewBroadcastScheduler(
	reg *registry.Registry,
	engine *simulation.Engine,
	out interfaces.IDeliverer,
	cfg models.MStreamingConfig,
	m *metrics.Metrics,
	log *logger.Logger,
) *BroadcastScheduler {
	return &BroadcastScheduler{
		Registry:          reg,
		Engine:            engine,
		Out:               out,
		Logger:            log,
		Metrics:           m,
		tickInterval:      time.Duration(cfg.TickIntervalMs) * time.Millisecond,
		heartbeatInterval: time.Duration(cfg.HeartbeatIntervalMs) * time.Millisecond,
		now:               time.Now,
	}
}

func (s *BroadcastScheduler) TickInterval() time.Duration      { return s.tickInterval }
func (s *BroadcastScheduler) HeartbeatInterval() time.Duration { return s.heartbeatInterval }

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start launches the tick and heartbeat loops. Each loop owns its own ticker,
// so a slow cycle delays only its own next firing.
func (s *BroadcastScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(2)
	go s.loop(ctx, s.tickInterval, func(t time.Time) { s.RunTickCycle(t) })
	go s.loop(ctx, s.heartbeatInterval, func(t time.Time) { s.RunHeartbeat(t) })

	s.Logger.Info("Scheduler started (tick=%v, heartbeat=%v)", s.tickInterval, s.heartbeatInterval)
}

// Stop cancels both loops and waits until neither is mid-cycle.
func (s *BroadcastScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.Logger.Info("Scheduler stopped")
}

func (s *BroadcastScheduler) loop(ctx context.Context, interval time.Duration, fn func(time.Time)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.guard(fn, t)
		}
	}
}

// guard keeps a panicking cycle from killing the loop.
func (s *BroadcastScheduler) guard(fn func(time.Time), t time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("Scheduler cycle panicked: %v", r)
		}
	}()
	fn(t)
}

// -----------------------------------------------------------------------------
// Cycles
// -----------------------------------------------------------------------------

// RunTickCycle generates one batch for every active symbol and delivers to
// each connection the subset it subscribed to. Returns the number of
// messages delivered.
func (s *BroadcastScheduler) RunTickCycle(now time.Time) int {
	start := s.now()
	defer func() { s.Metrics.TickCycle.Observe(s.now().Sub(start).Seconds()) }()

	active := s.Registry.ActiveSymbols()
	s.evict(active)

	if s.Sessions != nil {
		active = s.Sessions.FilterOpen(active, now)
	}
	if len(active) == 0 {
		return 0
	}

	ticks := s.Engine.GenerateTicks(active)
	s.Metrics.TicksGenerated.Add(float64(len(ticks)))

	if s.Archive != nil && !s.Archive.Offer(ticks) {
		s.Metrics.ArchiveDropped.Inc()
	}

	bySymbol := make(map[string]models.TickData, len(ticks))
	for _, t := range ticks {
		bySymbol[t.Symbol] = t
	}

	serverTime := now.UnixMilli()
	interval := s.tickInterval.Milliseconds()
	delivered := 0

	for _, id := range s.Registry.Connections() {
		var own []models.TickData
		for _, sym := range s.Registry.SymbolsForConnection(id) {
			if t, ok := bySymbol[sym]; ok {
				own = append(own, t)
			}
		}
		if len(own) == 0 {
			continue
		}
		if s.Out.Deliver(id, models.NewTicksMessage(own, serverTime, interval)) {
			delivered++
		}
	}

	s.Logger.Debug("Tick cycle: %d symbols, %d deliveries", len(ticks), delivered)
	return delivered
}

// RunHeartbeat sends a heartbeat to every registered connection.
func (s *BroadcastScheduler) RunHeartbeat(now time.Time) int {
	msg := models.NewHeartbeatMessage(now.UnixMilli())

	delivered := 0
	for _, id := range s.Registry.Connections() {
		if s.Out.Deliver(id, msg) {
			delivered++
		}
	}
	return delivered
}

func (s *BroadcastScheduler) evict(active []string) {
	evicted := s.Engine.EvictIdle(active)
	if len(evicted) == 0 {
		return
	}
	s.Metrics.EvictedStates.Add(float64(len(evicted)))
	s.Logger.Info("Evicted idle simulation state for %v", evicted)
}

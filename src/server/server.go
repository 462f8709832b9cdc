package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"market-streamer/src/interfaces"
	"market-streamer/src/logger"
	"market-streamer/src/models"
	"market-streamer/src/protocol"
	"market-streamer/src/scheduler"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultTickLimit = 50
	maxTickLimit     = 1000
)

// -----------------------------------------------------------------------------
// StreamServer
// -----------------------------------------------------------------------------

type Options struct {
	Hub       *Hub
	Scheduler *scheduler.BroadcastScheduler
	Store     interfaces.ITickStore // nil when the archive is disabled
	Gatherer  prometheus.Gatherer
}

type StreamServer struct {
	Config *models.MConfig
	Logger *logger.Logger

	hub       *Hub
	scheduler *scheduler.BroadcastScheduler
	store     interfaces.ITickStore

	engine   *gin.Engine
	upgrader websocket.Upgrader
	http     *http.Server
	listener net.Listener
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewStreamServer(cfg *models.MConfig, log *logger.Logger, opts Options) *StreamServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &StreamServer{
		Config:    cfg,
		Logger:    log,
		hub:       opts.Hub,
		scheduler: opts.Scheduler,
		store:     opts.Store,
		engine:    gin.New(),
	}

	allowAll, origins := splitOrigins(cfg.AllowedOrigins)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowAll, origins),
	}

	s.engine.Use(ginzap.Ginzap(log.Zap(), time.RFC3339, true))
	s.engine.Use(ginzap.RecoveryWithZap(log.Zap(), true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Cache-Control", "X-Requested-With"},
		AllowCredentials: !allowAll,
		MaxAge:           12 * time.Hour,
	}
	if allowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	s.engine.Use(cors.New(corsCfg))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.setupRoutes(gatherer)
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *StreamServer) setupRoutes(gatherer prometheus.Gatherer) {
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/symbols", s.getSymbols)
	s.engine.GET("/api/ticks/:symbol", s.getTicks)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router (tests, embedding)
func (s *StreamServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start binds the listener synchronously so a bind failure aborts startup,
// then serves in the background and starts the scheduler.
func (s *StreamServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.Config.Host, strconv.Itoa(s.Config.Port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	s.listener = lis
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("HTTP server stopped: %v", err)
		}
	}()

	s.scheduler.Start(ctx)
	s.Logger.Info("Streaming server listening on %s", lis.Addr())
	return nil
}

// Addr returns the bound address once started
func (s *StreamServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop tears down in order: timers, then client sessions, then the listener.
func (s *StreamServer) Stop(ctx context.Context) error {
	s.scheduler.Stop()
	s.hub.Close()

	if s.http == nil {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.Logger.Info("Streaming server stopped")
	return nil
}

// -----------------------------------------------------------------------------
// WebSocket Handler
// -----------------------------------------------------------------------------

func (s *StreamServer) handleWebSocket(c *gin.Context) {
	if s.hub.IsClosed() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(uuid.NewString(), s.hub, conn, s.Config.Streaming.SendBufferSize, s.Logger)
	if err := s.hub.Connect(client); err != nil {
		refuse(conn, "server is shutting down")
		return
	}

	go client.writePump()
	go client.readPump()
}

// refuse tells an upgraded client why its session will not start, then
// closes the socket.
func refuse(conn *websocket.Conn, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(models.NewStatusErrorMessage(reason))
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, reason),
		time.Now().Add(writeWait))
	conn.Close()
}

// -----------------------------------------------------------------------------
// REST Handlers
// -----------------------------------------------------------------------------

func (s *StreamServer) getHealth(c *gin.Context) {
	stats := s.hub.Registry.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"connections":     s.hub.Count(),
		"active_symbols":  stats.ActiveSymbols,
		"subscriptions":   stats.Subscriptions,
		"tracked_symbols": s.hub.Engine.Tracked(),
		"server_time":     time.Now().UnixMilli(),
	})
}

func (s *StreamServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tick_interval_ms":      s.scheduler.TickInterval().Milliseconds(),
		"heartbeat_interval_ms": s.scheduler.HeartbeatInterval().Milliseconds(),
		"max_symbols":           protocol.MaxSymbols,
		"max_symbol_length":     protocol.MaxSymbolLength,
		"archive_enabled":       s.store != nil,
	})
}

func (s *StreamServer) getSymbols(c *gin.Context) {
	active := s.hub.Registry.ActiveSymbols()
	counts := make(map[string]int, len(active))
	for _, sym := range active {
		counts[sym] = len(s.hub.Registry.Subscribers(sym))
	}
	c.JSON(http.StatusOK, gin.H{
		"active":      active,
		"subscribers": counts,
	})
}

func (s *StreamServer) getTicks(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tick archive is disabled"})
		return
	}

	limit := defaultTickLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTickLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxTickLimit)})
			return
		}
		limit = n
	}

	ticks, err := s.store.RecentTicks(c.Param("symbol"), limit)
	if err != nil {
		s.Logger.Error("Failed to read archived ticks: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read tick archive"})
		return
	}
	if ticks == nil {
		ticks = []models.TickData{}
	}
	c.JSON(http.StatusOK, gin.H{"ticks": ticks})
}

// -----------------------------------------------------------------------------
// Origin helpers
// -----------------------------------------------------------------------------

func splitOrigins(allowed []string) (bool, []string) {
	var origins []string
	for _, o := range allowed {
		if o == "*" {
			return true, nil
		}
		origins = append(origins, o)
	}
	return len(origins) == 0, origins
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browser requests from an allowed origin.
func originChecker(allowAll bool, origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowAll || origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

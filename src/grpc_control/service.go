package grpc_control

import (
	"context"
	"strings"
	"time"

	"market-streamer/src/logger"
	"market-streamer/src/metrics"
	"market-streamer/src/registry"
	"market-streamer/src/simulation"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// SessionCounter reports live client sessions (the server hub).
type SessionCounter interface {
	Count() int
}

// ControlService implements ControlServer over the live registry and engine.
type ControlService struct {
	Registry *registry.Registry
	Engine   *simulation.Engine
	Sessions SessionCounter
	Metrics  *metrics.Metrics
	Logger   *logger.Logger

	startedAt time.Time
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	reg *registry.Registry,
	engine *simulation.Engine,
	sessions SessionCounter,
	m *metrics.Metrics,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Registry:  reg,
		Engine:    engine,
		Sessions:  sessions,
		Metrics:   m,
		Logger:    log,
		startedAt: time.Now(),
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	stats := s.Registry.Stats()
	return newStruct(map[string]any{
		"connections":     s.Sessions.Count(),
		"registered":      stats.Connections,
		"active_symbols":  stats.ActiveSymbols,
		"subscriptions":   stats.Subscriptions,
		"tracked_symbols": s.Engine.Tracked(),
		"uptime_seconds":  int64(time.Since(s.startedAt).Seconds()),
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListActiveSymbols(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	active := s.Registry.ActiveSymbols()
	subscribers := make(map[string]any, len(active))
	for _, sym := range active {
		subscribers[sym] = len(s.Registry.Subscribers(sym))
	}
	return newStruct(map[string]any{
		"symbols":     stringList(active),
		"subscribers": subscribers,
	})
}

// -----------------------------------------------------------------------------

// EvictIdle runs one idle-state sweep immediately instead of waiting for the
// next tick cycle.
func (s *ControlService) EvictIdle(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	evicted := s.Engine.EvictIdle(s.Registry.ActiveSymbols())
	if s.Metrics != nil && len(evicted) > 0 {
		s.Metrics.EvictedStates.Add(float64(len(evicted)))
	}
	s.Logger.Info("gRPC: EvictIdle removed %d symbol states", len(evicted))
	return newStruct(map[string]any{
		"evicted": stringList(evicted),
	})
}

// -----------------------------------------------------------------------------

// GetSymbolState expects {"symbol": "<SYM>"}.
func (s *ControlService) GetSymbolState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.GetFields()["symbol"].GetStringValue()))
	if symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol is required")
	}

	st, ok := s.Engine.State(symbol)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "symbol %s has no simulated state", symbol)
	}

	return newStruct(map[string]any{
		"symbol":      st.Symbol,
		"price":       st.Price,
		"open":        st.Open,
		"high":        st.High,
		"low":         st.Low,
		"volume":      st.Volume,
		"last_update": st.LastUpdate.UnixMilli(),
		"subscribers": len(s.Registry.Subscribers(symbol)),
	})
}

// -----------------------------------------------------------------------------

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// structpb only accepts []any for list values
func stringList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

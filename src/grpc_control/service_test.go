package grpc_control

import (
	"context"
	"net"
	"testing"
	"time"

	"market-streamer/src/logger"
	"market-streamer/src/metrics"
	"market-streamer/src/models"
	"market-streamer/src/registry"
	"market-streamer/src/simulation"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fixedCount int

func (c fixedCount) Count() int { return int(c) }

type fixture struct {
	client *ControlClient
	reg    *registry.Registry
	engine *simulation.Engine
	svc    *ControlService
	clock  *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.New()
	engine := simulation.NewEngine(models.MSimulationConfig{Seed: 5, IdleEvictionMinutes: 1})
	clock := time.Now()
	engine.SetClock(func() time.Time { return clock })

	svc := NewControlService(reg, engine, fixedCount(2), metrics.NewUnregistered(), logger.NewNop())
	srv := NewServer(svc, logger.NewNop())

	lis := bufconn.Listen(1 << 20)
	srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &fixture{client: NewControlClient(conn), reg: reg, engine: engine, svc: svc, clock: &clock}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

// -----------------------------------------------------------------------------

func TestGetStatus(t *testing.T) {
	f := newFixture(t)
	f.reg.RegisterConnection("a")
	_, _, err := f.reg.Subscribe("a", []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	f.engine.GenerateTicks([]string{"AAPL"})

	out, err := f.client.GetStatus(ctx(t))
	require.NoError(t, err)

	fields := out.AsMap()
	assert.Equal(t, float64(2), fields["connections"])
	assert.Equal(t, float64(1), fields["registered"])
	assert.Equal(t, float64(2), fields["active_symbols"])
	assert.Equal(t, float64(2), fields["subscriptions"])
	assert.Equal(t, float64(1), fields["tracked_symbols"])
}

func TestListActiveSymbols(t *testing.T) {
	f := newFixture(t)
	f.reg.RegisterConnection("a")
	f.reg.RegisterConnection("b")
	_, _, _ = f.reg.Subscribe("a", []string{"NVDA"})
	_, _, _ = f.reg.Subscribe("b", []string{"NVDA", "AMD"})

	out, err := f.client.ListActiveSymbols(ctx(t))
	require.NoError(t, err)

	fields := out.AsMap()
	assert.Equal(t, []any{"AMD", "NVDA"}, fields["symbols"])
	assert.Equal(t, map[string]any{"AMD": float64(1), "NVDA": float64(2)}, fields["subscribers"])
}

func TestEvictIdle(t *testing.T) {
	f := newFixture(t)
	f.reg.RegisterConnection("a")
	_, _, _ = f.reg.Subscribe("a", []string{"AAPL"})
	f.engine.GenerateTicks([]string{"AAPL", "TSLA"})
	*f.clock = f.clock.Add(5 * time.Minute)

	out, err := f.client.EvictIdle(ctx(t))
	require.NoError(t, err)

	assert.Equal(t, []any{"TSLA"}, out.AsMap()["evicted"])
	assert.Equal(t, 1, f.engine.Tracked(), "active symbols are never evicted")
	assert.Equal(t, float64(1), testutil.ToFloat64(f.svc.Metrics.EvictedStates))
}

func TestGetSymbolState(t *testing.T) {
	f := newFixture(t)
	tick := f.engine.GenerateTick("AAPL")

	out, err := f.client.GetSymbolState(ctx(t), "aapl")
	require.NoError(t, err)
	fields := out.AsMap()
	assert.Equal(t, "AAPL", fields["symbol"])
	assert.Equal(t, tick.Price, fields["price"])
	assert.Equal(t, float64(0), fields["subscribers"])

	_, err = f.client.GetSymbolState(ctx(t), "ZZZ")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = f.client.GetSymbolState(ctx(t), " ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestListenReportsBindFailure(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	srv := NewServer(&ControlService{}, logger.NewNop())
	assert.Error(t, srv.Listen(lis.Addr().String()))
}

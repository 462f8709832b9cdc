package simulation

import (
	"testing"
	"time"

	"market-streamer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(idleMinutes int) *Engine {
	return NewEngine(models.MSimulationConfig{
		Seed:                42,
		IdleEvictionMinutes: idleMinutes,
		BasePrices:          map[string]float64{"aapl": 175.50, "PENNY": 0.01},
	})
}

func TestFirstTickSeedsFromBaseTable(t *testing.T) {
	e := newTestEngine(0)

	tick := e.GenerateTick("aapl")
	assert.Equal(t, "AAPL", tick.Symbol)
	assert.Equal(t, 175.50, tick.Price)
	assert.Equal(t, tick.Price, tick.Open)
	assert.Equal(t, tick.Price, tick.High)
	assert.Equal(t, tick.Price, tick.Low)
	assert.Zero(t, tick.Change)
	assert.Zero(t, tick.ChangePercent)
	assert.GreaterOrEqual(t, tick.Volume, int64(initialVolumeMin))
	assert.Less(t, tick.Volume, int64(initialVolumeMax))
}

func TestUnknownSymbolSeedRange(t *testing.T) {
	e := newTestEngine(0)

	for _, sym := range []string{"ZZZ", "QWERTY", "X1", "FOO", "BAR"} {
		tick := e.GenerateTick(sym)
		assert.GreaterOrEqual(t, tick.Price, unknownPriceMin, sym)
		assert.Less(t, tick.Price, unknownPriceMax, sym)
	}
}

func TestUnknownSeedPriceStaysBelowCeiling(t *testing.T) {
	assert.Equal(t, 100.0, unknownSeedPrice(0))
	assert.Equal(t, 200.0, unknownSeedPrice(0.5))
	assert.Equal(t, 299.99, unknownSeedPrice(0.99998))
	assert.Equal(t, 299.99, unknownSeedPrice(0.9999999))
}

func TestTickInvariantsOverManySteps(t *testing.T) {
	e := newTestEngine(0)

	for _, sym := range []string{"AAPL", "PENNY", "UNKNOWN"} {
		first := e.GenerateTick(sym)
		prevVolume := first.Volume

		for i := 0; i < 2000; i++ {
			tick := e.GenerateTick(sym)

			require.GreaterOrEqual(t, tick.Price, minPrice, "%s step %d", sym, i)
			require.LessOrEqual(t, tick.Low, tick.Price, "%s step %d", sym, i)
			require.LessOrEqual(t, tick.Price, tick.High, "%s step %d", sym, i)
			require.Equal(t, first.Open, tick.Open, "open must not move")
			require.GreaterOrEqual(t, tick.Volume, prevVolume, "volume must not decrease")
			require.LessOrEqual(t, tick.Volume-prevVolume, int64(maxVolumeStep))
			prevVolume = tick.Volume
		}
	}
}

func TestPriceStepIsBounded(t *testing.T) {
	e := newTestEngine(0)
	prev := e.GenerateTick("AAPL").Price

	for i := 0; i < 500; i++ {
		tick := e.GenerateTick("AAPL")
		// volatility <= 0.5%, plus half a cent of rounding
		assert.LessOrEqual(t, abs(tick.Price-prev), prev*maxVolatility+0.005+1e-9)
		prev = tick.Price
	}
}

func TestGenerateTicksBatch(t *testing.T) {
	e := newTestEngine(0)

	ticks := e.GenerateTicks([]string{"aapl", "nvda", "msft"})
	require.Len(t, ticks, 3)
	assert.Equal(t, "AAPL", ticks[0].Symbol)
	assert.Equal(t, "NVDA", ticks[1].Symbol)
	assert.Equal(t, "MSFT", ticks[2].Symbol)
	assert.Equal(t, 3, e.Tracked())

	assert.Empty(t, e.GenerateTicks(nil))
}

func TestChangeIsRelativeToOpen(t *testing.T) {
	e := newTestEngine(0)
	e.GenerateTick("AAPL")

	for i := 0; i < 50; i++ {
		tick := e.GenerateTick("AAPL")
		assert.InDelta(t, tick.Price-tick.Open, tick.Change, 0.006)
		assert.InDelta(t, (tick.Price-tick.Open)/tick.Open*100, tick.ChangePercent, 0.006)
	}
}

func TestEvictIdle(t *testing.T) {
	e := newTestEngine(5)
	now := time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return now })

	e.GenerateTicks([]string{"AAPL", "NVDA", "TSLA"})

	now = now.Add(10 * time.Minute)
	e.GenerateTick("NVDA")

	evicted := e.EvictIdle([]string{"AAPL"})
	assert.ElementsMatch(t, []string{"TSLA"}, evicted)

	_, ok := e.State("TSLA")
	assert.False(t, ok)
	_, ok = e.State("AAPL")
	assert.True(t, ok, "active symbols are never evicted")
	_, ok = e.State("nvda")
	assert.True(t, ok, "recently updated symbols are kept")
}

func TestEvictIdleDisabled(t *testing.T) {
	e := newTestEngine(0)
	now := time.Now()
	e.SetClock(func() time.Time { return now })
	e.GenerateTick("AAPL")

	now = now.Add(24 * time.Hour)
	assert.Empty(t, e.EvictIdle(nil))
	assert.Equal(t, 1, e.Tracked())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

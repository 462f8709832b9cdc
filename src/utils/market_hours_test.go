package utils

import (
	"testing"
	"time"

	"market-streamer/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMICForSymbol(t *testing.T) {
	assert.Equal(t, "xnys", MICForSymbol("AAPL"))
	assert.Equal(t, "xlon", MICForSymbol("VOD.L"))
	assert.Equal(t, "xtks", MICForSymbol("7203.t"))
	assert.Equal(t, "xnys", MICForSymbol("BRK.B"))
	assert.Equal(t, "xnys", MICForSymbol(".L"))
}

func fallbackHours(t *testing.T) *MarketHours {
	t.Helper()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	mh := NewMarketHours(logger.NewNop())
	mh.load = func(mic string) *TradingCalendar {
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: ny}
	}
	return mh
}

func TestFallbackSession(t *testing.T) {
	mh := fallbackHours(t)
	ny := mh.calendarFor("AAPL").Timezone

	monday := time.Date(2026, 1, 5, 10, 0, 0, 0, ny)
	assert.True(t, mh.IsOpen("AAPL", monday))
	assert.False(t, mh.IsOpen("AAPL", monday.Add(7*time.Hour)), "after the close")
	assert.False(t, mh.IsOpen("AAPL", time.Date(2026, 1, 5, 9, 29, 0, 0, ny)), "before the open")
	assert.False(t, mh.IsOpen("AAPL", time.Date(2026, 1, 3, 12, 0, 0, 0, ny)), "saturday")
}

func TestFilterOpenPreservesOrder(t *testing.T) {
	mh := fallbackHours(t)
	ny := mh.calendarFor("AAPL").Timezone

	open := mh.FilterOpen([]string{"NVDA", "AAPL"}, time.Date(2026, 1, 6, 11, 0, 0, 0, ny))
	assert.Equal(t, []string{"NVDA", "AAPL"}, open)

	closed := mh.FilterOpen([]string{"NVDA", "AAPL"}, time.Date(2026, 1, 4, 11, 0, 0, 0, ny))
	assert.Empty(t, closed)
}

func TestCalendarsAreCached(t *testing.T) {
	mh := fallbackHours(t)
	loads := 0
	inner := mh.load
	mh.load = func(mic string) *TradingCalendar {
		loads++
		return inner(mic)
	}

	mh.IsOpen("AAPL", time.Now())
	mh.IsOpen("NVDA", time.Now())
	mh.IsOpen("VOD.L", time.Now())
	require.Equal(t, 2, loads)
}

package utils

import (
	"testing"
	"time"

	"market-streamer/src/logger"
	"market-streamer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickAt(symbol string, ts int64) models.TickData {
	return models.TickData{Symbol: symbol, Price: float64(ts), Timestamp: ts}
}

func timestamps(ticks []models.TickData) []int64 {
	out := make([]int64, len(ticks))
	for i, t := range ticks {
		out[i] = t.Timestamp
	}
	return out
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	rb := NewRingBuffer(3)
	for ts := int64(1); ts <= 5; ts++ {
		rb.Append(tickAt("AAPL", ts))
	}

	assert.True(t, rb.IsFull())
	assert.Equal(t, []int64{3, 4, 5}, timestamps(rb.GetAll()))
	assert.Equal(t, []int64{5, 4}, timestamps(rb.GetLatest(2)))
	assert.Equal(t, []int64{5, 4, 3}, timestamps(rb.GetLatest(10)))
	assert.Empty(t, NewRingBuffer(3).GetLatest(1))
}

func TestRingBufferResizeKeepsNewest(t *testing.T) {
	rb := NewRingBuffer(4)
	for ts := int64(1); ts <= 6; ts++ {
		rb.Append(tickAt("AAPL", ts))
	}

	rb.Resize(2)
	assert.Equal(t, 2, rb.Capacity())
	assert.Equal(t, []int64{5, 6}, timestamps(rb.GetAll()))

	rb.Append(tickAt("AAPL", 7))
	assert.Equal(t, []int64{6, 7}, timestamps(rb.GetAll()))

	rb.Resize(5)
	rb.Append(tickAt("AAPL", 8))
	assert.Equal(t, []int64{6, 7, 8}, timestamps(rb.GetAll()))
}

func TestRingBufferDropBefore(t *testing.T) {
	rb := NewRingBuffer(3)
	for ts := int64(1); ts <= 4; ts++ {
		rb.Append(tickAt("AAPL", ts))
	}

	assert.Equal(t, 2, rb.DropBefore(4))
	assert.Equal(t, []int64{4}, timestamps(rb.GetAll()))
	assert.Zero(t, rb.DropBefore(0))
}

func TestMemoryManagerAsTickStore(t *testing.T) {
	mm := NewMemoryManager(0, 3, logger.NewNop())
	require.NoError(t, mm.Initialize())

	require.NoError(t, mm.SaveTicks([]models.TickData{
		tickAt("AAPL", 1), tickAt("AAPL", 2), tickAt("MSFT", 1),
		tickAt("AAPL", 3), tickAt("AAPL", 4),
	}))

	got, err := mm.RecentTicks("aapl", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 2}, timestamps(got))
	assert.Equal(t, 2, mm.SymbolCount())

	none, err := mm.RecentTicks("TSLA", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)

	removed, err := mm.CleanupOlderThan(time.UnixMilli(3))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, 1, mm.SymbolCount(), "emptied buffers are released")

	require.NoError(t, mm.Close())
	assert.Zero(t, mm.SymbolCount())
}

func TestMemoryManagerShrinksOverLimit(t *testing.T) {
	mm := NewMemoryManager(10, 400, logger.NewNop())
	mm.heapMB = func() float64 { return 50 }

	batch := make([]models.TickData, 100)
	for i := range batch {
		batch[i] = tickAt("AAPL", int64(i))
	}
	require.NoError(t, mm.SaveTicks(batch))

	assert.Equal(t, 200, mm.DataStreams["AAPL"].Capacity())
	assert.Equal(t, 100, mm.DataStreams["AAPL"].Size())
}

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"market-streamer/src/logger"
	"market-streamer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *SQLiteTickStore {
	t.Helper()
	cfg := &models.MStorageConfig{DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "ticks.db")}
	store := NewSQLiteTickStore(cfg, logger.NewNop())
	require.NoError(t, store.Initialize())
	t.Cleanup(func() { store.Close() })
	return store
}

func tick(symbol string, ts int64, price float64) models.TickData {
	return models.TickData{
		Symbol: symbol, Price: price, Open: price, High: price, Low: price,
		Volume: 1_000_000, Timestamp: ts,
	}
}

func TestSQLiteSaveAndReadNewestFirst(t *testing.T) {
	store := openSQLite(t)

	require.NoError(t, store.SaveTicks([]models.TickData{
		tick("AAPL", 1000, 175.50),
		tick("AAPL", 3000, 176.10),
		tick("AAPL", 2000, 175.90),
		tick("MSFT", 1000, 378.90),
	}))

	got, err := store.RecentTicks("aapl", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3000), got[0].Timestamp)
	assert.Equal(t, int64(2000), got[1].Timestamp)
	assert.Equal(t, 176.10, got[0].Price)
	assert.Equal(t, int64(1_000_000), got[0].Volume)

	none, err := store.RecentTicks("TSLA", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSQLiteDuplicateTickReplaced(t *testing.T) {
	store := openSQLite(t)

	require.NoError(t, store.SaveTicks([]models.TickData{tick("AAPL", 1000, 175.50)}))
	require.NoError(t, store.SaveTicks([]models.TickData{tick("AAPL", 1000, 180.00)}))

	got, err := store.RecentTicks("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 180.00, got[0].Price)
}

func TestSQLiteCleanupOlderThan(t *testing.T) {
	store := openSQLite(t)
	now := time.UnixMilli(10_000_000)

	require.NoError(t, store.SaveTicks([]models.TickData{
		tick("AAPL", now.Add(-2*time.Hour).UnixMilli(), 1),
		tick("AAPL", now.Add(-30*time.Minute).UnixMilli(), 2),
		tick("AAPL", now.UnixMilli(), 3),
	}))

	removed, err := store.CleanupOlderThan(now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err := store.RecentTicks("AAPL", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteSchemaSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.db")
	cfg := &models.MStorageConfig{DBType: "sqlite", DBPath: path}

	first := NewSQLiteTickStore(cfg, logger.NewNop())
	require.NoError(t, first.Initialize())
	require.NoError(t, first.SaveTicks([]models.TickData{tick("NVDA", 1, 875.20)}))
	require.NoError(t, first.Close())

	second := NewSQLiteTickStore(cfg, logger.NewNop())
	require.NoError(t, second.Initialize())
	defer second.Close()

	got, err := second.RecentTicks("NVDA", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 875.20, got[0].Price)
}

func TestOpenTickStore(t *testing.T) {
	store, err := OpenTickStore(&models.MStorageConfig{DBType: "none"}, logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, store)

	cfg := &models.MStorageConfig{DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "t.db")}
	store, err = OpenTickStore(cfg, logger.NewNop())
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())

	store, err = OpenTickStore(&models.MStorageConfig{DBType: "memory", MemoryPoints: 10}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.SaveTicks([]models.TickData{tick("AAPL", 1, 175.5)}))
	got, err := store.RecentTicks("AAPL", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = OpenTickStore(&models.MStorageConfig{DBType: "mongo"}, logger.NewNop())
	require.Error(t, err)
}

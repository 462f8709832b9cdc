package storage

import (
	"fmt"
	"time"

	"market-streamer/src/helpers"
	"market-streamer/src/interfaces"
	"market-streamer/src/logger"
	"market-streamer/src/models"
	"market-streamer/src/utils"
)

const (
	connectAttempts = 5
	connectDelay    = 500 * time.Millisecond

	memoryShareOfRAM = 0.25
	memoryFloorMB    = 128
)

// OpenTickStore builds and initializes the store selected by cfg.DBType.
// It returns (nil, nil) when archiving is disabled.
func OpenTickStore(cfg *models.MStorageConfig, log *logger.Logger) (interfaces.ITickStore, error) {
	var store interfaces.ITickStore

	switch cfg.DBType {
	case "", "none":
		return nil, nil
	case "memory":
		limit := cfg.MaxMemoryMB
		if limit == 0 {
			limit = helpers.RecommendedMemoryLimitMB(memoryShareOfRAM, memoryFloorMB)
		}
		store = utils.NewMemoryManager(limit, cfg.MemoryPoints, log.Named("MemoryManager"))
	case "postgres":
		pg, err := NewPostgresTickStore(cfg, log.Named("PostgresTickStore"))
		if err != nil {
			return nil, dbError("failed to init postgres store", err)
		}
		store = pg
	case "sqlite":
		store = NewSQLiteTickStore(cfg, log.Named("SQLiteTickStore"))
	default:
		return nil, dbError(fmt.Sprintf("unsupported database type: %s", cfg.DBType), nil)
	}

	err := helpers.RetryWithBackoff(log, "tick store initialization", connectAttempts, connectDelay, store.Initialize)
	if err != nil {
		return nil, dbError("failed to initialize tick store", err)
	}
	return store, nil
}

func dbError(msg string, cause error) error {
	return &helpers.DatabaseError{StreamerError: helpers.StreamerError{Message: msg, Cause: cause}}
}

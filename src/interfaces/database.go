package interfaces

import (
	"time"

	"market-streamer/src/models"
)

// -----------------------------------------------------------------------------
// ITickStore defines the contract for the tick archive.
// -----------------------------------------------------------------------------

type ITickStore interface {

	// -----------------------------------------------------------------------------

	// Initialize opens the connection and creates the schema.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveTicks inserts a batch of ticks; duplicates (symbol, timestamp) are replaced.
	SaveTicks(ticks []models.TickData) error

	// -----------------------------------------------------------------------------

	// RecentTicks returns up to limit ticks for symbol, newest first.
	RecentTicks(symbol string, limit int) ([]models.TickData, error)

	// -----------------------------------------------------------------------------

	// CleanupOlderThan removes ticks older than cutoff and returns the count.
	CleanupOlderThan(cutoff time.Time) (int64, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}

// -----------------------------------------------------------------------------
// ITickSink accepts generated batches without blocking the caller.
// -----------------------------------------------------------------------------

type ITickSink interface {
	// Offer returns false when the batch was dropped.
	Offer(ticks []models.TickData) bool
}

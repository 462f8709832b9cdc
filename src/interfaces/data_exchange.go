package interfaces

import "market-streamer/src/models"

// -----------------------------------------------------------------------------
// IDeliverer pushes outbound messages to individual connections.
// -----------------------------------------------------------------------------

type IDeliverer interface {
	// -----------------------------------------------------------------------------
	// Deliver queues msg for the connection. Returns false when the
	// connection is gone or was dropped as a slow consumer.
	Deliver(connID string, msg models.Outbound) bool
}

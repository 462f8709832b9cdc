package interfaces

import "time"

// -----------------------------------------------------------------------------
// ISessionFilter restricts simulation to symbols whose market is in session.
// -----------------------------------------------------------------------------

type ISessionFilter interface {
	FilterOpen(symbols []string, t time.Time) []string
}

package models

import "time"

// MSymbolState is the mutable simulated market state for one symbol.
// Open is fixed for the lifetime of the state; Low <= Price <= High.
type MSymbolState struct {
	Symbol     string
	Price      float64
	Open       float64
	High       float64
	Low        float64
	Volume     int64
	LastUpdate time.Time
}

// TickData is an immutable snapshot of a symbol state at generation time.
type TickData struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	Timestamp     int64   `json:"timestamp"` // unix milliseconds
}

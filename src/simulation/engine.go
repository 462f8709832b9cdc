// Package simulation drives a per-symbol bounded random walk that stands in
// for a real market data feed.
package simulation

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"market-streamer/src/models"

	"github.com/shopspring/decimal"
)

const (
	minPrice      = 0.01
	minVolatility = 0.001
	maxVolatility = 0.005

	unknownPriceMin = 100.0
	unknownPriceMax = 300.0

	initialVolumeMin = 1_000_000
	initialVolumeMax = 10_000_000
	maxVolumeStep    = 10_000
)

// -----------------------------------------------------------------------------

// Engine owns the simulated state of every symbol it has ever been asked
// about, until the state is evicted.
type Engine struct {
	mu         sync.Mutex
	states     map[string]*models.MSymbolState
	basePrices map[string]float64
	rng        *rand.Rand
	idleTTL    time.Duration
	now        func() time.Time
}

// -----------------------------------------------------------------------------

// NewEngine builds an engine from the simulation config. A zero seed seeds
// the generator from the clock.
func NewEngine(cfg models.MSimulationConfig) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	base := make(map[string]float64, len(cfg.BasePrices))
	for sym, p := range cfg.BasePrices {
		base[strings.ToUpper(sym)] = p
	}

	return &Engine{
		states:     make(map[string]*models.MSymbolState),
		basePrices: base,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		idleTTL:    time.Duration(cfg.IdleEvictionMinutes) * time.Minute,
		now:        time.Now,
	}
}

// SetClock replaces the time source (tests)
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	e.now = now
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------

// GenerateTick advances the symbol one step and returns the snapshot
func (e *Engine) GenerateTick(symbol string) models.TickData {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.step(strings.ToUpper(symbol), e.now())
}

// GenerateTicks advances every symbol once under a single lock
func (e *Engine) GenerateTicks(symbols []string) []models.TickData {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	ticks := make([]models.TickData, 0, len(symbols))
	for _, sym := range symbols {
		ticks = append(ticks, e.step(strings.ToUpper(sym), now))
	}
	return ticks
}

// -----------------------------------------------------------------------------

func (e *Engine) step(symbol string, now time.Time) models.TickData {
	st, ok := e.states[symbol]
	if !ok {
		st = e.seed(symbol, now)
		e.states[symbol] = st
		return snapshot(st)
	}

	volatility := minVolatility + e.rng.Float64()*(maxVolatility-minVolatility)
	sign := 1.0
	if e.rng.IntN(2) == 0 {
		sign = -1.0
	}

	next := st.Price + st.Price*volatility*sign
	if next < minPrice {
		next = minPrice
	}
	st.Price = roundCents(next)
	if st.Price < minPrice {
		st.Price = minPrice
	}

	if st.Price > st.High {
		st.High = st.Price
	}
	if st.Price < st.Low {
		st.Low = st.Price
	}
	st.Volume += e.rng.Int64N(maxVolumeStep + 1)
	st.LastUpdate = now

	return snapshot(st)
}

func (e *Engine) seed(symbol string, now time.Time) *models.MSymbolState {
	price, ok := e.basePrices[symbol]
	if ok {
		price = roundCents(price)
	} else {
		price = unknownSeedPrice(e.rng.Float64())
	}
	if price < minPrice {
		price = minPrice
	}

	return &models.MSymbolState{
		Symbol:     symbol,
		Price:      price,
		Open:       price,
		High:       price,
		Low:        price,
		Volume:     initialVolumeMin + e.rng.Int64N(initialVolumeMax-initialVolumeMin),
		LastUpdate: now,
	}
}

// unknownSeedPrice maps u in [0, 1) to a cent price in [100, 300).
func unknownSeedPrice(u float64) float64 {
	price := roundCents(unknownPriceMin + u*(unknownPriceMax-unknownPriceMin))
	if price >= unknownPriceMax {
		price = roundCents(unknownPriceMax - 0.01)
	}
	return price
}

func snapshot(st *models.MSymbolState) models.TickData {
	change := decimal.NewFromFloat(st.Price).Sub(decimal.NewFromFloat(st.Open))
	pct := decimal.Zero
	if st.Open != 0 {
		pct = change.Div(decimal.NewFromFloat(st.Open)).Mul(decimal.NewFromInt(100))
	}

	return models.TickData{
		Symbol:        st.Symbol,
		Price:         st.Price,
		Change:        change.Round(2).InexactFloat64(),
		ChangePercent: pct.Round(2).InexactFloat64(),
		Volume:        st.Volume,
		High:          st.High,
		Low:           st.Low,
		Open:          st.Open,
		Timestamp:     st.LastUpdate.UnixMilli(),
	}
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// -----------------------------------------------------------------------------
// Introspection and eviction
// -----------------------------------------------------------------------------

// State returns a copy of the simulated state for symbol
func (e *Engine) State(symbol string) (models.MSymbolState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[strings.ToUpper(symbol)]
	if !ok {
		return models.MSymbolState{}, false
	}
	return *st, true
}

// Tracked is the number of symbols with live simulated state
func (e *Engine) Tracked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.states)
}

// EvictIdle drops state for symbols outside active whose last update is
// older than the configured idle TTL. A zero TTL disables eviction.
func (e *Engine) EvictIdle(active []string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.idleTTL <= 0 {
		return nil
	}

	keep := make(map[string]struct{}, len(active))
	for _, sym := range active {
		keep[strings.ToUpper(sym)] = struct{}{}
	}

	cutoff := e.now().Add(-e.idleTTL)
	var evicted []string
	for sym, st := range e.states {
		if _, ok := keep[sym]; ok {
			continue
		}
		if st.LastUpdate.Before(cutoff) {
			delete(e.states, sym)
			evicted = append(evicted, sym)
		}
	}
	return evicted
}

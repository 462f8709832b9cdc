package utils

import (
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"market-streamer/src/logger"
	"market-streamer/src/models"
)

// -----------------------------------------------------------------------------
// MemoryManager keeps recent ticks per symbol in ring buffers. It satisfies
// interfaces.ITickStore for the "memory" archive type.
// -----------------------------------------------------------------------------

type MemoryManager struct {
	DataStreams   map[string]*RingBuffer
	MaxMemoryMB   int
	MaxDataPoints int
	Logger        *logger.Logger
	mu            sync.RWMutex

	heapMB func() float64
}

// -----------------------------------------------------------------------------

func NewMemoryManager(maxMemoryMB, maxDataPoints int, log *logger.Logger) *MemoryManager {
	return &MemoryManager{
		DataStreams:   make(map[string]*RingBuffer),
		MaxMemoryMB:   maxMemoryMB,
		MaxDataPoints: maxDataPoints,
		Logger:        log,
		heapMB:        GetProcessMemoryMB,
	}
}

// -----------------------------------------------------------------------------

func (mm *MemoryManager) Initialize() error { return nil }

// SaveTicks appends each tick to its symbol's buffer
func (mm *MemoryManager) SaveTicks(ticks []models.TickData) error {
	mm.mu.Lock()
	check := false
	for _, t := range ticks {
		buffer, ok := mm.DataStreams[t.Symbol]
		if !ok {
			buffer = NewRingBuffer(mm.MaxDataPoints)
			mm.DataStreams[t.Symbol] = buffer
		}
		buffer.Append(t)

		// Periodic memory check
		if buffer.Size()%100 == 0 {
			check = true
		}
	}
	mm.mu.Unlock()

	if check {
		mm.CheckMemoryLimits()
	}
	return nil
}

// RecentTicks returns up to limit ticks for symbol, newest first
func (mm *MemoryManager) RecentTicks(symbol string, limit int) ([]models.TickData, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	buffer, ok := mm.DataStreams[strings.ToUpper(symbol)]
	if !ok {
		return []models.TickData{}, nil
	}
	return buffer.GetLatest(limit), nil
}

// CleanupOlderThan drops ticks older than cutoff; empty buffers are released
func (mm *MemoryManager) CleanupOlderThan(cutoff time.Time) (int64, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	var removed int64
	for sym, buffer := range mm.DataStreams {
		removed += int64(buffer.DropBefore(cutoff.UnixMilli()))
		if buffer.Size() == 0 {
			delete(mm.DataStreams, sym)
		}
	}
	return removed, nil
}

// Close clears all data
func (mm *MemoryManager) Close() error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.DataStreams = make(map[string]*RingBuffer)
	return nil
}

// -----------------------------------------------------------------------------

// CheckMemoryLimits halves every large buffer when the heap exceeds MaxMemoryMB
func (mm *MemoryManager) CheckMemoryLimits() {
	if mm.MaxMemoryMB <= 0 {
		return
	}

	currentMemory := mm.heapMB()
	if currentMemory <= float64(mm.MaxMemoryMB) {
		return
	}

	mm.Logger.Info("Memory usage %.1fMB exceeds limit %dMB. Cleaning up.", currentMemory, mm.MaxMemoryMB)

	mm.mu.Lock()
	for _, buffer := range mm.DataStreams {
		if buffer.Capacity() > 100 {
			buffer.Resize(max(buffer.Capacity()/2, 50))
		}
	}
	mm.mu.Unlock()

	runtime.GC()
	debug.FreeOSMemory()
}

// GetProcessMemoryMB gets current heap usage in MB
func GetProcessMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}

// -----------------------------------------------------------------------------

// SymbolCount returns number of symbols with data
func (mm *MemoryManager) SymbolCount() int {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	return len(mm.DataStreams)
}

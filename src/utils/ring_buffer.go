package utils

import (
	"market-streamer/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of ticks for one symbol.
// Appending to a full buffer overwrites the oldest tick.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.TickData
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000
	}

	return &RingBuffer{
		data:     make([]models.TickData, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

func (rb *RingBuffer) Append(tick models.TickData) {
	rb.data[rb.index] = tick
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns up to n ticks, newest first
func (rb *RingBuffer) GetLatest(n int) []models.TickData {
	if rb.size == 0 || n <= 0 {
		return []models.TickData{}
	}

	count := min(n, rb.size)
	result := make([]models.TickData, count)

	// Latest tick is at index-1
	for i := 0; i < count; i++ {
		idx := (rb.index - 1 - i + 2*rb.capacity) % rb.capacity
		result[i] = rb.data[idx]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all ticks in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.TickData {
	if rb.size == 0 {
		return []models.TickData{}
	}

	result := make([]models.TickData, rb.size)
	start := rb.oldest()
	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(start+i)%rb.capacity]
	}

	return result
}

func (rb *RingBuffer) oldest() int {
	if rb.size == rb.capacity {
		return rb.index
	}
	return 0
}

// -----------------------------------------------------------------------------

// DropBefore removes ticks with Timestamp < cutoff (unix ms) and returns how
// many were removed. Ticks are assumed to arrive in timestamp order.
func (rb *RingBuffer) DropBefore(cutoff int64) int {
	start := rb.oldest()
	dropped := 0
	for dropped < rb.size && rb.data[(start+dropped)%rb.capacity].Timestamp < cutoff {
		dropped++
	}
	if dropped == 0 {
		return 0
	}

	kept := rb.GetAll()[dropped:]
	rb.Clear()
	for _, t := range kept {
		rb.Append(t)
	}
	return dropped
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// Capacity returns buffer capacity
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Resize changes the capacity of the buffer.
// If newCapacity < size, oldest ticks are dropped.
func (rb *RingBuffer) Resize(newCapacity int) {
	if newCapacity <= 0 || newCapacity == rb.capacity {
		return
	}

	count := min(rb.size, newCapacity)
	newData := make([]models.TickData, newCapacity)

	// Copy the newest 'count' ticks, oldest first
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		newData[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	rb.data = newData
	rb.capacity = newCapacity
	rb.size = count
	rb.index = count % newCapacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}

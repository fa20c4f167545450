// Package measurement implements the relay measurement chain: per-cycle sample
// accumulation, RMS extraction and CT/ADC scaling.
package measurement

// SampleBuffer accumulates raw ADC samples for one power-system cycle.
//
// Samples are returned in physical slot order. The order is chronological only
// between calls to Clear; once the buffer wraps, the oldest slot is overwritten
// at the write cursor and Samples no longer starts with the oldest value.
// Callers are expected to Clear once per processing cycle.
//
// Not safe for concurrent use.
type SampleBuffer struct {
	samples  []int32
	capacity int
	cursor   int // next slot to overwrite once full
}

// Returns an empty buffer holding at most capacity samples. A negative
// capacity is treated as 0.
func NewSampleBuffer(capacity int) *SampleBuffer {
	capacity = max(capacity, 0)
	return &SampleBuffer{
		samples:  make([]int32, 0, capacity),
		capacity: capacity,
	}
}

// AddSample appends a sample until the buffer is full, then overwrites the slot
// at the write cursor. The cursor advances on every call.
func (b *SampleBuffer) AddSample(value int32) {
	if b.capacity == 0 {
		return
	}
	if len(b.samples) < b.capacity {
		b.samples = append(b.samples, value)
	} else {
		b.samples[b.cursor] = value
	}
	b.cursor = (b.cursor + 1) % b.capacity
}

// Returns true once the buffer holds a full cycle of samples.
func (b *SampleBuffer) IsFull() bool {
	return len(b.samples) == b.capacity
}

// Returns true if no samples are held.
func (b *SampleBuffer) IsEmpty() bool {
	return len(b.samples) == 0
}

// Returns the stored samples in slot order. The slice aliases the buffer and is
// only valid until the next AddSample or Clear.
func (b *SampleBuffer) Samples() []int32 {
	return b.samples
}

// Returns the number of samples held.
func (b *SampleBuffer) Len() int {
	return len(b.samples)
}

// Returns the configured capacity (samples per cycle).
func (b *SampleBuffer) Capacity() int {
	return b.capacity
}

// Clear empties the buffer and rewinds the cursor, keeping the allocation.
func (b *SampleBuffer) Clear() {
	b.samples = b.samples[:0]
	b.cursor = 0
}

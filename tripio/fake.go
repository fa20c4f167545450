package tripio

import "sync"

// FakeOutput records contact operations for test assertions.
type FakeOutput struct {
	mu sync.Mutex

	// Values contains every value passed to Set.
	Values []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutput creates a FakeOutput for testing.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the value.
func (f *FakeOutput) Set(trip bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, trip)
	return nil
}

// Energised reports the last value set, false if none.
func (f *FakeOutput) Energised() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return false
	}
	return f.Values[len(f.Values)-1]
}

// Close de-energises and marks the output as closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Values = append(f.Values, false)
	f.Closed = true
	return nil
}

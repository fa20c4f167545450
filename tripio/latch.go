package tripio

// Latch writes to an Output only when the trip value changes, so the line is
// not toggled once per cycle.
type Latch struct {
	output Output
	state  bool
	set    bool // whether state has been written at least once
}

// Returns a Latch driving output.
func NewLatch(output Output) *Latch {
	return &Latch{output: output}
}

// Update drives the output to trip if it differs from the last written value.
// Returns true if the output was written.
func (l *Latch) Update(trip bool) (bool, error) {
	if l.set && trip == l.state {
		return false, nil
	}
	if err := l.output.Set(trip); err != nil {
		return false, err
	}
	l.state = trip
	l.set = true
	return true, nil
}

// Returns the last written value.
func (l *Latch) State() bool {
	return l.state
}

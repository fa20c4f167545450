package goose

import "sync"

// FakeTransport records sent messages for test assertions.
type FakeTransport struct {
	mu sync.Mutex

	// Messages contains all messages that were sent.
	Messages []TripMessage

	// SendError, if set, will be returned by Send.
	SendError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeTransport creates a FakeTransport for testing.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// Send records the message.
func (f *FakeTransport) Send(msg TripMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendError != nil {
		return f.SendError
	}
	f.Messages = append(f.Messages, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (f *FakeTransport) Sent() []TripMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TripMessage(nil), f.Messages...)
}

// Close marks the transport as closed.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

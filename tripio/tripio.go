// Package tripio drives the physical trip contact.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package tripio

// Output drives a trip contact.
type Output interface {
	// Set energises (true) or de-energises (false) the contact.
	Set(trip bool) error

	// Close de-energises the contact and releases resources.
	Close() error
}

// Defaults for the trip contact (BCM numbering on a Raspberry Pi).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

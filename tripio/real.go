//go:build linux

package tripio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives an active-high GPIO line.
type RealOutput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealOutput requests pin on chip as an output, initially de-energised.
func NewRealOutput(chip string, pin int) (*RealOutput, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := c.RequestLine(pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("relay-trip"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request trip pin %d: %w", pin, err)
	}

	return &RealOutput{chip: c, line: line}, nil
}

// Set writes the trip value to the line.
func (o *RealOutput) Set(trip bool) error {
	value := 0
	if trip {
		value = 1
	}
	if err := o.line.SetValue(value); err != nil {
		return fmt.Errorf("set trip pin: %w", err)
	}
	return nil
}

// Close de-energises the contact, returns the line to an input and releases
// the chip.
func (o *RealOutput) Close() error {
	var errs []error

	if o.line != nil {
		if err := o.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear trip pin: %w", err))
		}
		if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trip pin: %w", err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trip pin: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

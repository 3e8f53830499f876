//go:build linux

package actuator

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// Buzzer drives an active buzzer on a GPIO output line using the Linux GPIO
// character device. The line is high while alerting.
type Buzzer struct {
	mu   sync.Mutex
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	on   bool
}

// NewBuzzer requests pin (BCM numbering) on chip as an output, initially low.
func NewBuzzer(chip string, pin int) (*Buzzer, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := c.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request buzzer pin %d: %w", pin, err)
	}

	return &Buzzer{chip: c, line: line}, nil
}

// BeginAlert drives the line high.
func (b *Buzzer) BeginAlert() error {
	return b.set(true)
}

// EndAlert drives the line low.
func (b *Buzzer) EndAlert() error {
	return b.set(false)
}

// Show is a no-op; the buzzer has no display.
func (b *Buzzer) Show(string) error {
	return nil
}

func (b *Buzzer) set(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.line == nil {
		return fmt.Errorf("%w: buzzer closed", ErrFault)
	}
	if b.on == on {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := b.line.SetValue(v); err != nil {
		return fmt.Errorf("%w: set buzzer: %v", ErrFault, err)
	}
	b.on = on
	return nil
}

// Close silences the buzzer and releases GPIO resources.
// The pin is reconfigured to input with pull-down (the Pi boot default) before
// closing so the buzzer stays silent through shutdown and reboot.
func (b *Buzzer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if b.line != nil {
		if err := b.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("silence buzzer: %w", err))
		}
		if err := b.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure buzzer pin: %w", err))
		}
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close buzzer pin: %w", err))
		}
		b.line = nil
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		b.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

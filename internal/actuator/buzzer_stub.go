//go:build !linux

package actuator

import "errors"

// Buzzer is not available on non-Linux platforms.
type Buzzer struct{}

// NewBuzzer returns an error on non-Linux platforms.
func NewBuzzer(chip string, pin int) (*Buzzer, error) {
	return nil, errors.New("buzzer: not supported on this platform (requires Linux)")
}

// BeginAlert is not implemented on non-Linux platforms.
func (b *Buzzer) BeginAlert() error {
	return ErrFault
}

// EndAlert is not implemented on non-Linux platforms.
func (b *Buzzer) EndAlert() error {
	return ErrFault
}

// Show is a no-op.
func (b *Buzzer) Show(string) error {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (b *Buzzer) Close() error {
	return nil
}

// Package actuator drives the physical alert outputs: a buzzer on a GPIO
// line and a status display. The decision loop treats every sink as
// fire-and-forget; failures are reported as ErrFault and logged by the caller.
package actuator

import (
	"errors"
	"fmt"
)

// ErrFault wraps any failure to drive an output.
var ErrFault = errors.New("actuator: fault")

// Sink receives alert side effects. Implementations must be idempotent:
// BeginAlert while already alerting, or EndAlert while idle, is not an error.
type Sink interface {
	BeginAlert() error
	EndAlert() error
	Show(text string) error
}

// Multi fans every call out to all sinks. A failing sink does not stop the
// others; the errors are joined.
type Multi []Sink

// BeginAlert calls BeginAlert on every sink.
func (m Multi) BeginAlert() error {
	return m.each(func(s Sink) error { return s.BeginAlert() })
}

// EndAlert calls EndAlert on every sink.
func (m Multi) EndAlert() error {
	return m.each(func(s Sink) error { return s.EndAlert() })
}

// Show calls Show on every sink.
func (m Multi) Show(text string) error {
	return m.each(func(s Sink) error { return s.Show(text) })
}

func (m Multi) each(fn func(Sink) error) error {
	var errs []error
	for _, s := range m {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	if errors.Is(err, ErrFault) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFault, err)
}

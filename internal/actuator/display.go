package actuator

import (
	"sync"

	"go.uber.org/zap"
)

// Display is a virtual status display that logs every change. It remembers
// only enough to suppress repeats. Safe for concurrent use.
type Display struct {
	mu       sync.Mutex
	text     string
	alerting bool
	logger   *zap.Logger
}

// NewDisplay creates a display that logs through logger.
func NewDisplay(logger *zap.Logger) *Display {
	return &Display{logger: logger}
}

// BeginAlert marks the display as alerting.
func (d *Display) BeginAlert() error {
	d.mu.Lock()
	changed := !d.alerting
	d.alerting = true
	d.mu.Unlock()
	if changed {
		d.logger.Warn("alert started")
	}
	return nil
}

// EndAlert clears the alerting mark.
func (d *Display) EndAlert() error {
	d.mu.Lock()
	changed := d.alerting
	d.alerting = false
	d.mu.Unlock()
	if changed {
		d.logger.Info("alert ended")
	}
	return nil
}

// Show replaces the displayed text.
func (d *Display) Show(text string) error {
	d.mu.Lock()
	changed := d.text != text
	d.text = text
	d.mu.Unlock()
	if changed {
		d.logger.Debug("display", zap.String("text", text))
	}
	return nil
}

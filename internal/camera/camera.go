// Package camera provides frame acquisition with abstraction for testing.
// The real source fetches JPEG snapshots over HTTP from the capture service.
package camera

import (
	"context"
	"errors"
	"image"
)

// ErrSensorUnavailable is returned when no frame could be grabbed this tick.
var ErrSensorUnavailable = errors.New("camera: sensor unavailable")

// Source grabs frames from a camera.
type Source interface {
	// Grab returns the current frame. It must honour ctx's deadline.
	// Any failure wraps ErrSensorUnavailable.
	Grab(ctx context.Context) (image.Image, error)

	// Close releases camera resources.
	Close() error
}

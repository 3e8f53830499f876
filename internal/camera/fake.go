package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// FakeSource is a test double that returns scripted frames.
type FakeSource struct {
	mu sync.Mutex

	// Frames contains scripted frames. Each Grab consumes the next one;
	// once exhausted the last frame is returned repeatedly. A nil entry
	// simulates a failed grab.
	Frames []image.Image

	index int

	// GrabError, if set, is returned by every Grab.
	GrabError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource with the given frames.
func NewFakeSource(frames ...image.Image) *FakeSource {
	return &FakeSource{Frames: frames}
}

// Grab returns the next scripted frame.
func (f *FakeSource) Grab(ctx context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GrabError != nil {
		return nil, f.GrabError
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
	}
	if len(f.Frames) == 0 {
		return nil, fmt.Errorf("%w: no frames configured", ErrSensorUnavailable)
	}

	frame := f.Frames[f.index]
	if f.index < len(f.Frames)-1 {
		f.index++
	}
	if frame == nil {
		return nil, fmt.Errorf("%w: scripted failure", ErrSensorUnavailable)
	}
	return frame, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset rewinds to the first frame.
func (f *FakeSource) Reset() {
	f.mu.Lock()
	f.index = 0
	f.Closed = false
	f.mu.Unlock()
}

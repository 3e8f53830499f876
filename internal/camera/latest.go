package camera

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"
	"time"
)

// Latest holds the most recently captured frame. The decision loop stores a
// frame every tick; the web server reads it. Frames are never mutated after
// Store, so readers may keep the returned image.
type Latest struct {
	mu    sync.RWMutex
	frame image.Image
	at    time.Time
}

// Store replaces the latest frame.
func (l *Latest) Store(frame image.Image, at time.Time) {
	l.mu.Lock()
	l.frame = frame
	l.at = at
	l.mu.Unlock()
}

// Load returns the latest frame and its capture time. ok is false before the
// first Store.
func (l *Latest) Load() (frame image.Image, at time.Time, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frame, l.at, l.frame != nil
}

// JPEG encodes the latest frame. ok is false before the first Store.
func (l *Latest) JPEG(quality int) ([]byte, bool, error) {
	frame, _, ok := l.Load()
	if !ok {
		return nil, false, nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, true, err
	}
	return buf.Bytes(), true, nil
}

package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/go-resty/resty/v2"
)

// SnapshotSource fetches a single JPEG frame per Grab from an HTTP endpoint.
type SnapshotSource struct {
	client *resty.Client
	url    string
}

// NewSnapshotSource creates a source for the given snapshot URL. timeout
// bounds every request in addition to the caller's context.
func NewSnapshotSource(url string, timeout time.Duration) *SnapshotSource {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "image/jpeg")
	return &SnapshotSource{client: client, url: url}
}

// Grab downloads and decodes one frame.
func (s *SnapshotSource) Grab(ctx context.Context) (image.Image, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch snapshot: %v", ErrSensorUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: snapshot status %s", ErrSensorUnavailable, resp.Status())
	}

	img, err := jpeg.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", ErrSensorUnavailable, err)
	}
	return img, nil
}

// Close is a no-op; the HTTP client holds no camera resources.
func (s *SnapshotSource) Close() error {
	return nil
}

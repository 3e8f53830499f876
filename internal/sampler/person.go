package sampler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultMinScore is the detection confidence above which a person counts.
const DefaultMinScore = 0.5

// PersonDetector reports whether a person is visible in a frame.
type PersonDetector interface {
	Detect(ctx context.Context, frame image.Image) (bool, error)
}

// NoPersonDetector never sees anyone. Used when no detector is configured.
type NoPersonDetector struct{}

// Detect always returns false.
func (NoPersonDetector) Detect(context.Context, image.Image) (bool, error) {
	return false, nil
}

// Detection is one object reported by the remote detector.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// RemoteDetector posts each frame as JPEG to an inference service and looks
// for a "person" detection above MinScore.
type RemoteDetector struct {
	client   *resty.Client
	url      string
	MinScore float64
}

// NewRemoteDetector creates a detector for the given inference endpoint URL.
func NewRemoteDetector(url string, timeout time.Duration) *RemoteDetector {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &RemoteDetector{client: client, url: url, MinScore: DefaultMinScore}
}

// Detect encodes the frame and asks the service for detections.
func (d *RemoteDetector) Detect(ctx context.Context, frame image.Image) (bool, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 80}); err != nil {
		return false, fmt.Errorf("encode frame: %w", err)
	}

	var result detectResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "image/jpeg").
		SetBody(buf.Bytes()).
		SetResult(&result).
		Post(d.url)
	if err != nil {
		return false, fmt.Errorf("detect: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("detect: unexpected status %s", resp.Status())
	}

	for _, det := range result.Detections {
		if strings.EqualFold(det.Label, "person") && det.Score > d.MinScore {
			return true, nil
		}
	}
	return false, nil
}

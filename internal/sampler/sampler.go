// Package sampler turns a single camera frame into a logic.Reading.
// Brightness and motion are computed locally; person detection is delegated
// to a PersonDetector.
package sampler

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/room-sentinel/internal/logic"
)

// Config holds the detector thresholds.
type Config struct {
	// BrightnessThreshold is the mean luma (0-255) above which the light is on.
	BrightnessThreshold float64
	// MotionPixelThreshold is the per-pixel luma delta that counts as changed.
	MotionPixelThreshold uint8
	// MotionAreaRatio is the fraction of changed pixels that counts as motion.
	MotionAreaRatio float64
}

// Sampler runs the three detectors over a frame. It is owned by the decision
// loop and is not safe for concurrent use (the motion detector keeps the
// previous frame).
type Sampler struct {
	cfg    Config
	motion *MotionDetector
	person PersonDetector
	logger *zap.Logger
}

// New creates a Sampler. A nil detector disables person detection.
func New(cfg Config, person PersonDetector, logger *zap.Logger) *Sampler {
	if person == nil {
		person = NoPersonDetector{}
	}
	return &Sampler{
		cfg:    cfg,
		motion: NewMotionDetector(cfg.MotionPixelThreshold, cfg.MotionAreaRatio),
		person: person,
		logger: logger,
	}
}

// Sample evaluates one frame. A person detector failure is logged and reads
// as no person; it never drops the reading.
func (s *Sampler) Sample(ctx context.Context, frame image.Image, now time.Time) logic.Reading {
	gray := ToGray(frame)

	human, err := s.person.Detect(ctx, frame)
	if err != nil {
		s.logger.Warn("person detector failed", zap.Error(err))
		human = false
	}

	return logic.Reading{
		HumanPresent:  human,
		MotionPresent: s.motion.Detect(gray),
		LightOn:       Brightness(gray) > s.cfg.BrightnessThreshold,
		Time:          now,
	}
}

// Reset forgets the motion reference, so the next frame reads as still. The
// loop calls it when frames resume after an outage.
func (s *Sampler) Reset() {
	s.motion.Reset()
}

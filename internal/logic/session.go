package logic

import (
	"sync/atomic"
	"time"
)

// Session is an in-flight countdown toward an alert.
//
// A Session is shared between the decision loop and the countdown task.
// All fields except the cancel flag are immutable after creation.
type Session struct {
	ID        uint64
	EpisodeID string
	Reason    Reason
	StartedAt time.Time
	Duration  time.Duration

	cancel atomic.Bool
}

// Cancel requests that the countdown abort without alerting.
func (s *Session) Cancel() {
	s.cancel.Store(true)
}

// CancelRequested reports whether Cancel has been called.
func (s *Session) CancelRequested() bool {
	return s.cancel.Load()
}

// Deadline returns when the countdown completes.
func (s *Session) Deadline() time.Time {
	return s.StartedAt.Add(s.Duration)
}

// Remaining returns the time left before the countdown completes, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	d := s.Deadline().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

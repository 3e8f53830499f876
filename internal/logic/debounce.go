package logic

import "time"

// Timer tracks how long a boolean signal has been continuously true.
// It is not safe for concurrent use; the decision loop owns every Timer.
type Timer struct {
	threshold time.Duration
	startedAt time.Time
	started   bool
	flagged   bool
}

// NewTimer creates a debounce timer that flags once the signal has held for threshold.
// A threshold of zero flags on the first true observation.
func NewTimer(threshold time.Duration) *Timer {
	return &Timer{threshold: threshold}
}

// Observe feeds one sample and reports whether the threshold is crossed.
// A false sample clears the timer completely, so the next true sample
// starts counting from zero.
func (t *Timer) Observe(signal bool, now time.Time) bool {
	if !signal {
		t.Reset()
		return false
	}

	if !t.started {
		t.started = true
		t.startedAt = now
		t.flagged = t.threshold <= 0
		return t.flagged
	}

	if now.Sub(t.startedAt) >= t.threshold {
		t.flagged = true
	}
	return t.flagged
}

// Reset clears the timer as if the signal had gone false.
func (t *Timer) Reset() {
	t.started = false
	t.startedAt = time.Time{}
	t.flagged = false
}

// Flagged reports the last computed flag without advancing the timer.
func (t *Timer) Flagged() bool {
	return t.flagged
}

// StartedAt returns when the signal turned true, if it is currently true.
func (t *Timer) StartedAt() (time.Time, bool) {
	return t.startedAt, t.started
}

// Elapsed returns how long the signal has been true as of now, or zero.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	if !t.started {
		return 0
	}
	return now.Sub(t.startedAt)
}

// Threshold returns the configured debounce duration.
func (t *Timer) Threshold() time.Duration {
	return t.threshold
}

// Package logic contains the pure occupancy decision core.
// This package has NO external dependencies (no camera, HTTP, GPIO, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the decision state of the room.
type State string

const (
	StateMonitoring   State = "MONITORING"
	StateOccupied     State = "OCCUPIED"
	StateCountingDown State = "COUNTING_DOWN"
	StateAlerting     State = "ALERTING"
)

// Reason identifies the signal that triggered a countdown or alert.
// The string form is sent to the schedule oracle as the flag reason.
type Reason string

const (
	ReasonHuman  Reason = "Human"
	ReasonMotion Reason = "Motion"
	ReasonLight  Reason = "Light"
)

// OccupancyStatus is the schedule oracle's view of the room.
type OccupancyStatus int

const (
	// StatusUnknown is reported before the first successful query and on any
	// query failure. It never suppresses alerts.
	StatusUnknown OccupancyStatus = iota
	StatusOccupied
	StatusFree
)

func (s OccupancyStatus) String() string {
	switch s {
	case StatusOccupied:
		return "OCCUPIED"
	case StatusFree:
		return "FREE"
	default:
		return "UNKNOWN"
	}
}

// Reading is one tick's fused sensor observation.
type Reading struct {
	HumanPresent  bool
	MotionPresent bool
	LightOn       bool
	Time          time.Time
}

// Input is everything the machine needs for a single decision tick.
type Input struct {
	// Reading is nil when the frame grab failed this tick. Debounce timers
	// are then held as-is and no detection-driven transition is taken.
	Reading *Reading
	Status  OccupancyStatus
	Time    time.Time
}

// ActionType is a side effect requested by the machine.
type ActionType string

const (
	ActionStartCountdown  ActionType = "START_COUNTDOWN"
	ActionCancelCountdown ActionType = "CANCEL_COUNTDOWN"
	ActionPostFlag        ActionType = "POST_FLAG"
	ActionBeginAlert      ActionType = "BEGIN_ALERT"
	ActionEndAlert        ActionType = "END_ALERT"
	ActionShow            ActionType = "SHOW"
)

// Action is a side effect to be executed by the caller, in slice order.
type Action struct {
	Type      ActionType
	Time      time.Time
	Reason    Reason
	EpisodeID string
	// Session is set for START_COUNTDOWN and CANCEL_COUNTDOWN.
	Session *Session
	// Text is the display text for SHOW.
	Text string
}

// Counts tracks decision outcomes since startup.
type Counts struct {
	Countdowns int
	Cancelled  int
	Alerts     int
	Overrides  int
}

// Display texts.
const (
	TextMonitoring = "Monitoring..."
	TextCancelled  = "Countdown cancelled"
	TextBuzzing    = "Buzzing now!"
	TextUsing      = "Status: Using"
)

// Package status provides a thread-safe status tracker for the room-sentinel daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/room-sentinel/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing cmd-level helpers from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs           int64
	FrameTimeoutMs   int64
	MotionDebounceMs int64
	LightDebounceMs  int64
	CountdownMs      int64
	CooldownMs       int64
	BuzzMs           int64
	HeartbeatMs      int64
	Broker           string
	HTTPAddr         string
	OracleURL        string
	InstallCode      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Machine       logic.Snapshot
	Room          string
	RoomResolved  bool
	Display       string
	SensorOK      bool
	LastFrame     time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	FlagsDropped  int
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the decision machine's view. Called from the decision loop on every tick.
func (t *Tracker) Update(m logic.Snapshot) {
	t.mu.Lock()
	t.snap.Machine = m
	t.mu.Unlock()
}

// SetSensor records whether the last frame grab succeeded.
// LastFrame only advances on success.
func (t *Tracker) SetSensor(ok bool, at time.Time) {
	t.mu.Lock()
	t.snap.SensorOK = ok
	if ok {
		t.snap.LastFrame = at
	}
	t.mu.Unlock()
}

// SetRoom records the resolved room identity.
func (t *Tracker) SetRoom(room string, resolved bool) {
	t.mu.Lock()
	t.snap.Room = room
	t.snap.RoomResolved = resolved
	t.mu.Unlock()
}

// SetDisplay records the text last shown on the display.
func (t *Tracker) SetDisplay(text string) {
	t.mu.Lock()
	t.snap.Display = text
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// FlagDropped counts a flag that was never posted because the room was not
// resolved.
func (t *Tracker) FlagDropped() {
	t.mu.Lock()
	t.snap.FlagsDropped++
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

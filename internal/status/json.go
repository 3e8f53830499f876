package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Occupancy     string       `json:"occupancy"`
	Room          RoomJSON     `json:"room"`
	Episode       *EpisodeJSON `json:"episode,omitempty"`
	Signals       SignalsJSON  `json:"signals"`
	Display       string       `json:"display"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// RoomJSON reports the oracle's room identity.
type RoomJSON struct {
	ID          string `json:"id,omitempty"`
	Resolved    bool   `json:"resolved"`
	InstallCode string `json:"install_code,omitempty"`
}

// EpisodeJSON describes the active countdown or alert.
type EpisodeJSON struct {
	ID                   string `json:"id"`
	Reason               string `json:"reason"`
	CountdownRemainingMs int64  `json:"countdown_remaining_ms,omitempty"`
	Alerting             bool   `json:"alerting"`
}

// SignalsJSON reports the last reading and debounce progress.
type SignalsJSON struct {
	Human             bool   `json:"human"`
	Motion            bool   `json:"motion"`
	Light             bool   `json:"light"`
	MotionForMs       int64  `json:"motion_for_ms"`
	LightForMs        int64  `json:"light_for_ms"`
	PresenceForMs     int64  `json:"presence_for_ms"`
	PresenceConfirmed bool   `json:"presence_confirmed"`
	SensorOK          bool   `json:"sensor_ok"`
	LastFrame         string `json:"last_frame,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of decision outcome counts.
type CountsJSON struct {
	Countdowns   int `json:"countdowns"`
	Cancelled    int `json:"cancelled"`
	Alerts       int `json:"alerts"`
	Overrides    int `json:"overrides"`
	FlagsDropped int `json:"flags_dropped"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs           int64  `json:"tick_ms"`
	FrameTimeoutMs   int64  `json:"frame_timeout_ms"`
	MotionDebounceMs int64  `json:"motion_debounce_ms"`
	LightDebounceMs  int64  `json:"light_debounce_ms"`
	CountdownMs      int64  `json:"countdown_ms"`
	CooldownMs       int64  `json:"cooldown_ms"`
	BuzzMs           int64  `json:"buzz_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Broker           string `json:"broker"`
	HTTPAddr         string `json:"http_addr"`
	OracleURL        string `json:"oracle_url"`
}

func buildInner(snap Snapshot) StatusInner {
	m := snap.Machine
	state := string(m.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State:     state,
		Occupancy: m.Status.String(),
		Room: RoomJSON{
			ID:          snap.Room,
			Resolved:    snap.RoomResolved,
			InstallCode: snap.Config.InstallCode,
		},
		Signals: SignalsJSON{
			Human:             m.Last.HumanPresent,
			Motion:            m.Last.MotionPresent,
			Light:             m.Last.LightOn,
			MotionForMs:       m.MotionFor.Milliseconds(),
			LightForMs:        m.LightFor.Milliseconds(),
			PresenceForMs:     m.PresenceFor.Milliseconds(),
			PresenceConfirmed: m.PresenceConfirmed,
			SensorOK:          snap.SensorOK,
		},
		Display:       snap.Display,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Countdowns:   m.Counts.Countdowns,
			Cancelled:    m.Counts.Cancelled,
			Alerts:       m.Counts.Alerts,
			Overrides:    m.Counts.Overrides,
			FlagsDropped: snap.FlagsDropped,
		},
		Config: ConfigJSON{
			TickMs:           snap.Config.TickMs,
			FrameTimeoutMs:   snap.Config.FrameTimeoutMs,
			MotionDebounceMs: snap.Config.MotionDebounceMs,
			LightDebounceMs:  snap.Config.LightDebounceMs,
			CountdownMs:      snap.Config.CountdownMs,
			CooldownMs:       snap.Config.CooldownMs,
			BuzzMs:           snap.Config.BuzzMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			OracleURL:        snap.Config.OracleURL,
		},
	}
	if !snap.LastFrame.IsZero() {
		inner.Signals.LastFrame = snap.LastFrame.UTC().Format(time.RFC3339)
	}
	if m.EpisodeID != "" {
		inner.Episode = &EpisodeJSON{
			ID:                   m.EpisodeID,
			Reason:               string(m.Reason),
			CountdownRemainingMs: m.CountdownRemaining.Milliseconds(),
			Alerting:             m.Alerting,
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

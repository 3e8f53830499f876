// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/room-sentinel/internal/logic"
)

// DefaultTopicPrefix is the topic root when none is configured.
const DefaultTopicPrefix = "monitoring/room"

// Topics holds the topics a publisher writes to.
type Topics struct {
	// Episode receives countdown and alert events.
	Episode string
	// System receives lifecycle events (STARTUP, SHUTDOWN, HEARTBEAT, LWT).
	System string
}

// NewTopics derives the topics from a prefix such as "monitoring/room/lab-3".
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Episode: prefix + "/events",
		System:  prefix + "/system",
	}
}

// Publisher publishes events to MQTT. Implementations must return promptly;
// the decision loop calls them inline.
type Publisher interface {
	// PublishEpisode sends a countdown or alert event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishEpisode(event EpisodeEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// EpisodeEventType names a step in an alert episode.
type EpisodeEventType string

const (
	EventCountdownStarted   EpisodeEventType = "COUNTDOWN_STARTED"
	EventCountdownCancelled EpisodeEventType = "COUNTDOWN_CANCELLED"
	EventAlert              EpisodeEventType = "ALERT"
	EventAlertEnd           EpisodeEventType = "ALERT_END"
	EventOccupied           EpisodeEventType = "OCCUPIED"
)

// EpisodeEvent is one step of an alert episode.
type EpisodeEvent struct {
	Timestamp time.Time
	Type      EpisodeEventType
	EpisodeID string
	Reason    logic.Reason
	State     logic.State
	RoomID    string
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Episode EpisodePayload `json:"episode"`
}

// EpisodePayload contains the episode event details.
type EpisodePayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	EpisodeID string `json:"episode_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	State     string `json:"state"`
	RoomID    string `json:"room_id,omitempty"`
}

// FormatPayload creates the JSON payload for an episode event.
func FormatPayload(event EpisodeEvent) ([]byte, error) {
	payload := Payload{
		Episode: EpisodePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			EpisodeID: event.EpisodeID,
			Reason:    string(event.Reason),
			State:     string(event.State),
			RoomID:    event.RoomID,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

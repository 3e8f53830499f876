package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/room-sentinel/internal/logic"
)

func TestFormatPayload(t *testing.T) {
	event := EpisodeEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      EventAlert,
		EpisodeID: "5f1c",
		Reason:    logic.ReasonLight,
		State:     logic.StateAlerting,
		RoomID:    "12",
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Episode.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Episode.Timestamp)
	}
	if parsed.Episode.Event != "ALERT" {
		t.Errorf("unexpected event: %s", parsed.Episode.Event)
	}
	if parsed.Episode.EpisodeID != "5f1c" {
		t.Errorf("unexpected episode id: %s", parsed.Episode.EpisodeID)
	}
	if parsed.Episode.Reason != "Light" {
		t.Errorf("unexpected reason: %s", parsed.Episode.Reason)
	}
	if parsed.Episode.State != "ALERTING" {
		t.Errorf("unexpected state: %s", parsed.Episode.State)
	}
	if parsed.Episode.RoomID != "12" {
		t.Errorf("unexpected room: %s", parsed.Episode.RoomID)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := EpisodeEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      EventCountdownCancelled,
		EpisodeID: "ep-1",
		Reason:    logic.ReasonMotion,
		State:     logic.StateMonitoring,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"episode":{"timestamp":"2026-02-02T22:18:12Z","event":"COUNTDOWN_CANCELLED","episode_id":"ep-1","reason":"Motion","state":"MONITORING"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	tests := []struct {
		eventType EpisodeEventType
		state     logic.State
		wantEvent string
		wantState string
	}{
		{EventCountdownStarted, logic.StateCountingDown, "COUNTDOWN_STARTED", "COUNTING_DOWN"},
		{EventCountdownCancelled, logic.StateMonitoring, "COUNTDOWN_CANCELLED", "MONITORING"},
		{EventAlert, logic.StateAlerting, "ALERT", "ALERTING"},
		{EventAlertEnd, logic.StateAlerting, "ALERT_END", "ALERTING"},
		{EventOccupied, logic.StateOccupied, "OCCUPIED", "OCCUPIED"},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			event := EpisodeEvent{
				Timestamp: time.Now(),
				Type:      tt.eventType,
				State:     tt.state,
			}

			payload, err := FormatPayload(event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			if parsed.Episode.Event != tt.wantEvent {
				t.Errorf("event: got %s, want %s", parsed.Episode.Event, tt.wantEvent)
			}
			if parsed.Episode.State != tt.wantState {
				t.Errorf("state: got %s, want %s", parsed.Episode.State, tt.wantState)
			}
		})
	}
}

func TestFormatPayloadOmitsEmptyFields(t *testing.T) {
	payload, err := FormatPayload(EpisodeEvent{Timestamp: time.Now(), Type: EventOccupied, State: logic.StateOccupied})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	json.Unmarshal(payload, &parsed)
	episode := parsed["episode"].(map[string]interface{})
	for _, key := range []string{"episode_id", "reason", "room_id"} {
		if _, exists := episode[key]; exists {
			t.Errorf("%s should be omitted when empty", key)
		}
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	event := EpisodeEvent{
		Timestamp: time.Now(),
		Type:      EventCountdownStarted,
		Reason:    logic.ReasonLight,
		State:     logic.StateCountingDown,
	}

	err := f.PublishEpisode(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := f.EpisodeEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventCountdownStarted {
		t.Errorf("unexpected event type: %s", events[0].Type)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	err := f.PublishEpisode(EpisodeEvent{Timestamp: time.Now(), Type: EventAlert})
	if err == nil {
		t.Error("expected error")
	}

	if len(f.EpisodeEvents()) != 0 {
		t.Errorf("expected no events recorded on error, got %d", len(f.EpisodeEvents()))
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()

	if f.Closed {
		t.Error("should not be closed initially")
	}

	err := f.Close()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()

	f.PublishEpisode(EpisodeEvent{Timestamp: time.Now(), Type: EventAlert})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"})
	f.Close()
	f.PublishError = errors.New("error")

	f.Reset()

	if len(f.EpisodeEvents()) != 0 {
		t.Error("events should be cleared")
	}
	if len(f.SystemEventList()) != 0 {
		t.Error("system events should be cleared")
	}
	if len(f.Payloads) != 0 {
		t.Error("payloads should be cleared")
	}
	if f.Closed {
		t.Error("closed should be reset")
	}
	if f.PublishError != nil {
		t.Error("error should be cleared")
	}
}

func TestFakePublisherConcurrent(t *testing.T) {
	f := NewFakePublisher()
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.PublishEpisode(EpisodeEvent{Timestamp: time.Now(), Type: EventAlert})
				f.EpisodeEvents()
			}
		}()
	}
	wg.Wait()

	if n := len(f.EpisodeEvents()); n != 400 {
		t.Errorf("expected 400 events, got %d", n)
	}
}

func TestNewTopics(t *testing.T) {
	topics := NewTopics("monitoring/room/lab-3")
	if topics.Episode != "monitoring/room/lab-3/events" {
		t.Errorf("unexpected episode topic: %s", topics.Episode)
	}
	if topics.System != "monitoring/room/lab-3/system" {
		t.Errorf("unexpected system topic: %s", topics.System)
	}
}

func TestNewTopicsDefault(t *testing.T) {
	topics := NewTopics("")
	if topics.Episode != "monitoring/room/events" {
		t.Errorf("unexpected episode topic: %s", topics.Episode)
	}
	if topics.System != "monitoring/room/system" {
		t.Errorf("unexpected system topic: %s", topics.System)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.System.Timestamp != "2026-02-03T10:30:45Z" {
		t.Errorf("unexpected timestamp: %s", parsed.System.Timestamp)
	}
	if parsed.System.Event != "SHUTDOWN" {
		t.Errorf("unexpected event: %s", parsed.System.Event)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("unexpected reason: %s", parsed.System.Reason)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload should pass through, got %s", payload)
	}
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 19, 5, 51, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	system := parsed["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("reason field should be omitted when empty")
	}
}

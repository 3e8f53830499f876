// Package oracle talks to the remote schedule service: it resolves the room
// identity from an installation code, asks whether the room is scheduled as in
// use, and flags unauthorized use.
//
// Every call is a single attempt with a bounded timeout. Retries belong to the
// callers: Resolver backs off between resolution attempts and StatusCache
// throttles status queries.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/sweeney/room-sentinel/internal/logic"
)

var (
	// ErrUnreachable covers transport failures, timeouts and non-2xx replies.
	ErrUnreachable = errors.New("oracle: unreachable")
	// ErrMalformed is returned when a reply cannot be decoded.
	ErrMalformed = errors.New("oracle: malformed response")
	// ErrRoomUnresolved is returned while the room identity is not known.
	ErrRoomUnresolved = errors.New("oracle: room identity unresolved")
)

// RoomID identifies a room in the schedule service. The service returns it as
// either a JSON number or a string.
type RoomID string

// UnmarshalJSON accepts a number, a string or null.
func (r *RoomID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RoomID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = RoomID(n.String())
	return nil
}

// MarshalJSON emits numeric IDs as numbers so the service sees what it sent.
func (r RoomID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(r), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(r) {
		return []byte(r), nil
	}
	return json.Marshal(string(r))
}

// Flag is one "unauthorized use" report.
type Flag struct {
	Reason     logic.Reason
	EpisodeID  string
	DetectedAt time.Time
}

// Client is the single-attempt schedule service API.
type Client interface {
	// ResolveRoom maps an installation code to a room.
	ResolveRoom(ctx context.Context, code string) (RoomID, error)

	// CheckSchedule returns the room's scheduled status at now. On error the
	// status is StatusUnknown.
	CheckSchedule(ctx context.Context, room RoomID, now time.Time) (logic.OccupancyStatus, error)

	// PostFlag reports unauthorized use and returns the service's message.
	PostFlag(ctx context.Context, room RoomID, f Flag) (string, error)
}

// QueryStatus is CheckSchedule with every failure collapsed to StatusUnknown.
func QueryStatus(ctx context.Context, c Client, room RoomID, now time.Time) logic.OccupancyStatus {
	status, err := c.CheckSchedule(ctx, room, now)
	if err != nil {
		return logic.StatusUnknown
	}
	return status
}

// ScheduleDay returns the service's day number: Monday=1 through Sunday=7.
func ScheduleDay(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

// ScheduleTime returns the service's wall-clock format, HH:MM:SS.
func ScheduleTime(t time.Time) string {
	return t.Format("15:04:05")
}

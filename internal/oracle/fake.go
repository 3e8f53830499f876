package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/room-sentinel/internal/logic"
)

// PostedFlag records one PostFlag call.
type PostedFlag struct {
	Room RoomID
	Flag Flag
}

// FakeClient is a scripted Client for tests. Safe for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	// Room is returned by ResolveRoom unless ResolveError is set.
	Room         RoomID
	ResolveError error

	// Status is returned by CheckSchedule unless StatusError is set.
	Status      logic.OccupancyStatus
	StatusError error

	// FlagError, if set, is returned by PostFlag.
	FlagError error
	// FlagDelay makes PostFlag block (or until ctx is done).
	FlagDelay time.Duration

	ResolveCalls int
	StatusCalls  int
	Flags        []PostedFlag
}

// NewFakeClient returns a client resolving to room with a Free schedule.
func NewFakeClient(room RoomID) *FakeClient {
	return &FakeClient{Room: room, Status: logic.StatusFree}
}

// ResolveRoom returns the scripted room.
func (f *FakeClient) ResolveRoom(ctx context.Context, code string) (RoomID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResolveCalls++
	if f.ResolveError != nil {
		return "", f.ResolveError
	}
	return f.Room, nil
}

// CheckSchedule returns the scripted status.
func (f *FakeClient) CheckSchedule(ctx context.Context, room RoomID, now time.Time) (logic.OccupancyStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StatusCalls++
	if f.StatusError != nil {
		return logic.StatusUnknown, f.StatusError
	}
	return f.Status, nil
}

// PostFlag records the flag.
func (f *FakeClient) PostFlag(ctx context.Context, room RoomID, fl Flag) (string, error) {
	f.mu.Lock()
	delay := f.FlagDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FlagError != nil {
		return "", f.FlagError
	}
	f.Flags = append(f.Flags, PostedFlag{Room: room, Flag: fl})
	return "Schedule flagged", nil
}

// SetStatus changes the scripted status.
func (f *FakeClient) SetStatus(status logic.OccupancyStatus, err error) {
	f.mu.Lock()
	f.Status = status
	f.StatusError = err
	f.mu.Unlock()
}

// PostedFlags returns a copy of the recorded flags.
func (f *FakeClient) PostedFlags() []PostedFlag {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PostedFlag, len(f.Flags))
	copy(out, f.Flags)
	return out
}

// Calls returns the resolve and status call counts.
func (f *FakeClient) Calls() (resolve, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ResolveCalls, f.StatusCalls
}

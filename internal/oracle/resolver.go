package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Resolver resolves the room identity once and retries failures with capped
// exponential backoff. Safe for concurrent use.
type Resolver struct {
	client     Client
	code       string
	minBackoff time.Duration
	maxBackoff time.Duration
	logger     *zap.Logger

	mu          sync.Mutex
	room        RoomID
	resolved    bool
	backoff     time.Duration
	nextAttempt time.Time
	lastErr     error
}

// NewResolver creates a resolver for the installation code.
func NewResolver(client Client, code string, minBackoff, maxBackoff time.Duration, logger *zap.Logger) *Resolver {
	if maxBackoff < minBackoff {
		maxBackoff = minBackoff
	}
	return &Resolver{
		client:     client,
		code:       code,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
		logger:     logger,
	}
}

// Room returns the resolved room. Before resolution it attempts the lookup
// unless the previous failure's backoff has not yet elapsed; every failure
// wraps ErrRoomUnresolved.
func (r *Resolver) Room(ctx context.Context, now time.Time) (RoomID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved {
		return r.room, nil
	}
	if now.Before(r.nextAttempt) {
		return "", fmt.Errorf("%w: retry in %v (last error: %v)", ErrRoomUnresolved, r.nextAttempt.Sub(now), r.lastErr)
	}

	room, err := r.client.ResolveRoom(ctx, r.code)
	if err != nil {
		if r.backoff == 0 {
			r.backoff = r.minBackoff
		} else {
			r.backoff *= 2
			if r.backoff > r.maxBackoff {
				r.backoff = r.maxBackoff
			}
		}
		r.nextAttempt = now.Add(r.backoff)
		r.lastErr = err
		r.logger.Warn("room identity unresolved",
			zap.String("install_code", r.code),
			zap.Duration("retry_in", r.backoff),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrRoomUnresolved, err)
	}

	r.room = room
	r.resolved = true
	r.backoff = 0
	r.lastErr = nil
	r.logger.Info("room identity resolved",
		zap.String("install_code", r.code),
		zap.String("room_id", string(room)),
	)
	return room, nil
}

// Resolved returns the room if it is known, without attempting a lookup.
func (r *Resolver) Resolved() (RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.room, r.resolved
}

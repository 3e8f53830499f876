package oracle

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sweeney/room-sentinel/internal/logic"
)

// StatusCache limits how often the schedule is queried. Between queries the
// last successful status is served until it expires; a failed query drops it,
// so failures surface as StatusUnknown rather than a stale answer.
type StatusCache struct {
	client  Client
	limiter *rate.Limiter
	store   *cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// cached is a status stamped with the caller's clock.
type cached struct {
	status logic.OccupancyStatus
	at     time.Time
}

// NewStatusCache allows one remote query per interval and keeps successful
// answers for ttl, which must be positive. A zero interval queries on every
// call.
func NewStatusCache(client Client, interval, ttl time.Duration, logger *zap.Logger) *StatusCache {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &StatusCache{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		store:   cache.New(ttl, 2*ttl),
		ttl:     ttl,
		logger:  logger,
	}
}

// Status returns the room's status at now. It never fails.
func (c *StatusCache) Status(ctx context.Context, room RoomID, now time.Time) logic.OccupancyStatus {
	key := string(room)

	if !c.limiter.AllowN(now, 1) {
		// go-cache expires on the wall clock and only bounds memory; freshness
		// is judged against now, like the limiter.
		if v, ok := c.store.Get(key); ok {
			if e := v.(cached); now.Sub(e.at) < c.ttl {
				return e.status
			}
		}
		return logic.StatusUnknown
	}

	status, err := c.client.CheckSchedule(ctx, room, now)
	if err != nil {
		c.store.Delete(key)
		c.logger.Warn("schedule query failed",
			zap.String("room_id", key),
			zap.Error(err),
		)
		return logic.StatusUnknown
	}

	c.store.Set(key, cached{status: status, at: now}, c.ttl)
	return status
}

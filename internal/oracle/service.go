package oracle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/room-sentinel/internal/logic"
)

// ServiceConfig tunes the retry and throttle policy around a Client.
type ServiceConfig struct {
	InstallCode       string
	StatusInterval    time.Duration
	StatusTTL         time.Duration
	ResolveBackoffMin time.Duration
	ResolveBackoffMax time.Duration
}

// Service is what the decision loop talks to: room resolution, throttled
// status and flag posting behind one value. Safe for concurrent use.
type Service struct {
	client   Client
	resolver *Resolver
	cache    *StatusCache
	logger   *zap.Logger
}

// NewService wraps client with a Resolver and a StatusCache.
func NewService(client Client, cfg ServiceConfig, logger *zap.Logger) *Service {
	return &Service{
		client:   client,
		resolver: NewResolver(client, cfg.InstallCode, cfg.ResolveBackoffMin, cfg.ResolveBackoffMax, logger),
		cache:    NewStatusCache(client, cfg.StatusInterval, cfg.StatusTTL, logger),
		logger:   logger,
	}
}

// Status returns the scheduled status at now. While the room is unresolved
// the status is StatusUnknown.
func (s *Service) Status(ctx context.Context, now time.Time) logic.OccupancyStatus {
	room, err := s.resolver.Room(ctx, now)
	if err != nil {
		return logic.StatusUnknown
	}
	return s.cache.Status(ctx, room, now)
}

// Flag posts a flag for the resolved room. The attempt uses the flag's
// detection time for room resolution so it respects the resolver backoff.
func (s *Service) Flag(ctx context.Context, f Flag) error {
	room, err := s.resolver.Room(ctx, f.DetectedAt)
	if err != nil {
		return err
	}
	msg, err := s.client.PostFlag(ctx, room, f)
	if err != nil {
		return fmt.Errorf("post flag: %w", err)
	}
	s.logger.Info("schedule flagged",
		zap.String("room_id", string(room)),
		zap.String("reason", string(f.Reason)),
		zap.String("episode_id", f.EpisodeID),
		zap.String("message", msg),
	)
	return nil
}

// Room returns the resolved room, if any.
func (s *Service) Room() (RoomID, bool) {
	return s.resolver.Resolved()
}

// Disabled is used when no schedule service is configured. Status is always
// unknown, so nothing is suppressed, and flags are dropped.
type Disabled struct{}

// Status returns StatusUnknown.
func (Disabled) Status(context.Context, time.Time) logic.OccupancyStatus {
	return logic.StatusUnknown
}

// Flag reports ErrRoomUnresolved; there is no room to flag.
func (Disabled) Flag(context.Context, Flag) error {
	return fmt.Errorf("%w: no schedule service configured", ErrRoomUnresolved)
}

// Room reports no room.
func (Disabled) Room() (RoomID, bool) {
	return "", false
}

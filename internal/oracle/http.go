package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sweeney/room-sentinel/internal/logic"
)

// StatusUsing is the schedule status that means the room is legitimately in use.
const StatusUsing = "Using"

// HTTPClient is the Client for the schedule service's HTTP API.
type HTTPClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a client for baseURL. Each request is a single attempt
// bounded by timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &HTTPClient{
		httpClient: client,
		logger:     logger,
	}
}

type roomResponse struct {
	RoomID RoomID `json:"room_id"`
}

type scheduleResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

type flagRequest struct {
	RoomID     RoomID `json:"room_id"`
	Reason     string `json:"reason"`
	EpisodeID  string `json:"episode_id,omitempty"`
	DetectedAt string `json:"detected_at,omitempty"`
}

type flagResponse struct {
	Message string `json:"message"`
}

// ResolveRoom calls GET /get_room_id?code=<code>.
func (c *HTTPClient) ResolveRoom(ctx context.Context, code string) (RoomID, error) {
	var out roomResponse
	if err := c.get(ctx, "/get_room_id", map[string]string{"code": code}, &out); err != nil {
		return "", err
	}
	if out.RoomID == "" {
		return "", fmt.Errorf("%w: no room for code %q", ErrRoomUnresolved, code)
	}
	return out.RoomID, nil
}

// CheckSchedule calls GET /check_schedule. A "Using" status (any case) is
// StatusOccupied; any other reply, including success=false (no schedule
// right now), is StatusFree.
func (c *HTTPClient) CheckSchedule(ctx context.Context, room RoomID, now time.Time) (logic.OccupancyStatus, error) {
	local := now.Local()
	params := map[string]string{
		"room_id":      string(room),
		"schedule_day": fmt.Sprint(ScheduleDay(local)),
		"current_time": ScheduleTime(local),
	}

	var out scheduleResponse
	if err := c.get(ctx, "/check_schedule", params, &out); err != nil {
		return logic.StatusUnknown, err
	}
	return statusFromSchedule(out), nil
}

func statusFromSchedule(r scheduleResponse) logic.OccupancyStatus {
	if r.Success && strings.EqualFold(strings.TrimSpace(r.Status), StatusUsing) {
		return logic.StatusOccupied
	}
	return logic.StatusFree
}

// PostFlag calls POST /flag_schedule.
func (c *HTTPClient) PostFlag(ctx context.Context, room RoomID, f Flag) (string, error) {
	body := flagRequest{
		RoomID:    room,
		Reason:    string(f.Reason),
		EpisodeID: f.EpisodeID,
	}
	if !f.DetectedAt.IsZero() {
		body.DetectedAt = f.DetectedAt.UTC().Format(time.RFC3339)
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/flag_schedule")
	if err != nil {
		return "", fmt.Errorf("%w: flag_schedule: %v", ErrUnreachable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: flag_schedule: status %s", ErrUnreachable, resp.Status())
	}

	var out flagResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: flag_schedule: %v", ErrMalformed, err)
	}
	return out.Message, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, path, err)
	}
	if resp.IsError() {
		c.logger.Debug("oracle returned error status",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("%w: %s: status %s", ErrUnreachable, path, resp.Status())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return nil
}

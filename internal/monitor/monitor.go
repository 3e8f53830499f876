// Package monitor runs the decision loop: it grabs a frame every tick, samples
// it, asks the schedule service for the room's status, feeds the occupancy
// machine and executes the actions it returns.
//
// The loop goroutine is the only owner of the machine. Countdown sessions run
// in their own goroutines and talk back only through the session's cancel flag
// and a completion channel.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/room-sentinel/internal/actuator"
	"github.com/sweeney/room-sentinel/internal/camera"
	"github.com/sweeney/room-sentinel/internal/logic"
	"github.com/sweeney/room-sentinel/internal/mqtt"
	"github.com/sweeney/room-sentinel/internal/oracle"
	"github.com/sweeney/room-sentinel/internal/status"
)

// Oracle is the schedule service as seen by the loop. *oracle.Service and
// oracle.Disabled implement it.
type Oracle interface {
	Status(ctx context.Context, now time.Time) logic.OccupancyStatus
	Flag(ctx context.Context, f oracle.Flag) error
	Room() (oracle.RoomID, bool)
}

// Sampler turns a frame into a reading. *sampler.Sampler implements it.
type Sampler interface {
	Sample(ctx context.Context, frame image.Image, now time.Time) logic.Reading
	// Reset drops state carried between frames.
	Reset()
}

// Config holds the loop timings.
type Config struct {
	Machine logic.Config
	// FrameTimeout bounds each frame grab.
	FrameTimeout time.Duration
	// CountdownStep is how often a running countdown refreshes the display
	// and re-checks cancellation.
	CountdownStep time.Duration
	// Heartbeat is the interval between HEARTBEAT system events. 0 disables.
	Heartbeat time.Duration
}

// Deps are the loop's collaborators. Camera and Sampler are required; the
// rest fall back to no-ops.
type Deps struct {
	Camera     camera.Source
	Sampler    Sampler
	Oracle     Oracle
	Sink       actuator.Sink
	Frames     *camera.Latest
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus
	Tracker    *status.Tracker
	// Network refreshes network info for heartbeats.
	Network    func() *status.NetworkInfo
	Logger     *zap.Logger
	Now        func() time.Time
	EpisodeIDs func() string
}

// Monitor is the decision loop.
type Monitor struct {
	cfg     Config
	deps    Deps
	logger  *zap.Logger
	now     func() time.Time
	machine *logic.Machine

	done chan *logic.Session
	wg   sync.WaitGroup

	// displayMu orders display writes between the loop and countdown tasks.
	displayMu sync.Mutex

	sensorOK      bool
	lastHeartbeat time.Time
}

// New creates a Monitor. The machine starts in Monitoring.
func New(cfg Config, deps Deps) *Monitor {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.EpisodeIDs == nil {
		deps.EpisodeIDs = uuid.NewString
	}
	if deps.Oracle == nil {
		deps.Oracle = oracle.Disabled{}
	}
	if deps.Sink == nil {
		deps.Sink = actuator.Multi{}
	}
	if cfg.CountdownStep <= 0 {
		cfg.CountdownStep = time.Second
	}
	return &Monitor{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger,
		now:      deps.Now,
		machine:  logic.NewMachine(cfg.Machine, logic.WithEpisodeIDs(deps.EpisodeIDs)),
		done:     make(chan *logic.Session),
		sensorOK: true,
	}
}

// Run executes the decision loop until ctx is cancelled or tick is closed.
// On return, countdown tasks have exited, in-flight flag posts have finished
// and any sounding alert has been ended.
func (m *Monitor) Run(ctx context.Context, tick <-chan time.Time) error {
	if m.deps.Camera == nil || m.deps.Sampler == nil {
		return errors.New("monitor: camera and sampler are required")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer m.shutdown(cancel)

	m.lastHeartbeat = m.now()
	m.show(logic.TextMonitoring)
	m.updateStatus(m.now())

	for {
		select {
		case <-loopCtx.Done():
			return nil

		case _, ok := <-tick:
			if !ok {
				return nil
			}
			m.step(loopCtx)

		case s := <-m.done:
			m.complete(loopCtx, s)
		}
	}
}

// complete handles a countdown task reporting its deadline.
func (m *Monitor) complete(ctx context.Context, s *logic.Session) {
	now := m.now()
	prev := m.machine.State()
	m.execute(ctx, m.machine.CountdownDone(s, now))
	m.logTransition(prev, now)
	m.updateStatus(now)
}

func (m *Monitor) step(ctx context.Context) {
	now := m.now()
	reading := m.sense(ctx, now)
	occupancy := m.deps.Oracle.Status(ctx, now)

	prev := m.machine.State()
	actions := m.machine.Tick(logic.Input{Reading: reading, Status: occupancy, Time: now})
	m.execute(ctx, actions)
	m.logTransition(prev, now)
	m.updateStatus(now)
	m.checkHeartbeat(now)
}

// sense grabs and samples one frame. It returns nil when the camera is
// unavailable so the machine holds its timers.
func (m *Monitor) sense(ctx context.Context, now time.Time) *logic.Reading {
	grabCtx := ctx
	if m.cfg.FrameTimeout > 0 {
		var cancel context.CancelFunc
		grabCtx, cancel = context.WithTimeout(ctx, m.cfg.FrameTimeout)
		defer cancel()
	}

	frame, err := m.deps.Camera.Grab(grabCtx)
	if err != nil {
		if m.sensorOK {
			m.logger.Warn("sensor unavailable, holding timers", zap.Error(err))
		}
		m.sensorOK = false
		if m.deps.Tracker != nil {
			m.deps.Tracker.SetSensor(false, now)
		}
		return nil
	}
	if !m.sensorOK {
		// The last good frame may be minutes old; diffing against it would
		// read as motion.
		m.logger.Info("sensor recovered")
		m.deps.Sampler.Reset()
	}
	m.sensorOK = true
	if m.deps.Tracker != nil {
		m.deps.Tracker.SetSensor(true, now)
	}
	if m.deps.Frames != nil {
		m.deps.Frames.Store(frame, now)
	}

	r := m.deps.Sampler.Sample(ctx, frame, now)
	return &r
}

func (m *Monitor) execute(ctx context.Context, actions []logic.Action) {
	for _, a := range actions {
		switch a.Type {
		case logic.ActionStartCountdown:
			m.logger.Info("countdown started",
				zap.String("reason", string(a.Reason)),
				zap.String("episode_id", a.EpisodeID),
				zap.Duration("duration", a.Session.Duration),
			)
			m.publish(a, mqtt.EventCountdownStarted)
			m.wg.Add(1)
			go m.countdown(ctx, a.Session)

		case logic.ActionCancelCountdown:
			m.logger.Info("countdown cancelled",
				zap.String("reason", string(a.Reason)),
				zap.String("episode_id", a.EpisodeID),
			)
			m.publish(a, mqtt.EventCountdownCancelled)
			m.show(a.Text)

		case logic.ActionPostFlag:
			m.postFlag(ctx, a)

		case logic.ActionBeginAlert:
			m.logger.Warn("alert",
				zap.String("reason", string(a.Reason)),
				zap.String("episode_id", a.EpisodeID),
			)
			if err := m.deps.Sink.BeginAlert(); err != nil {
				m.logger.Error("actuator fault", zap.String("op", "begin_alert"), zap.Error(err))
			}
			m.publish(a, mqtt.EventAlert)

		case logic.ActionEndAlert:
			if err := m.deps.Sink.EndAlert(); err != nil {
				m.logger.Error("actuator fault", zap.String("op", "end_alert"), zap.Error(err))
			}
			m.publish(a, mqtt.EventAlertEnd)

		case logic.ActionShow:
			m.show(a.Text)
		}
	}
}

// postFlag reports the alert in the background. The post outlives loop
// shutdown so a flag raised just before SIGTERM still reaches the service.
func (m *Monitor) postFlag(ctx context.Context, a logic.Action) {
	flag := oracle.Flag{Reason: a.Reason, EpisodeID: a.EpisodeID, DetectedAt: a.Time}
	postCtx := context.WithoutCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := m.deps.Oracle.Flag(postCtx, flag)
		switch {
		case err == nil:
		case errors.Is(err, oracle.ErrRoomUnresolved):
			// Flags are not queued for later; the local alert has already fired.
			m.logger.Warn("flag dropped, room unresolved",
				zap.String("reason", string(flag.Reason)),
				zap.String("episode_id", flag.EpisodeID),
			)
			if m.deps.Tracker != nil {
				m.deps.Tracker.FlagDropped()
			}
		default:
			m.logger.Error("flag post failed",
				zap.String("reason", string(flag.Reason)),
				zap.String("episode_id", flag.EpisodeID),
				zap.String("kind", errorKind(err)),
				zap.Error(err),
			)
		}
	}()
}

// countdown refreshes the display once per step until the session is
// cancelled or reaches its deadline, then reports completion to the loop.
func (m *Monitor) countdown(ctx context.Context, s *logic.Session) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CountdownStep)
	defer ticker.Stop()

	var shown string
	for {
		if s.CancelRequested() {
			return
		}
		remaining := s.Remaining(m.now())
		if remaining <= 0 {
			select {
			case m.done <- s:
			case <-ctx.Done():
			}
			return
		}
		if text := CountdownText(remaining, s.Reason); text != shown {
			m.showCountdown(s, text)
			shown = text
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CountdownText is the display text for a running countdown, e.g.
// "Countdown: 42s (Light)". Seconds are rounded up.
func CountdownText(remaining time.Duration, reason logic.Reason) string {
	secs := (remaining + time.Second - 1) / time.Second
	return fmt.Sprintf("Countdown: %ds (%s)", secs, reason)
}

func (m *Monitor) show(text string) {
	if text == "" {
		return
	}
	m.displayMu.Lock()
	defer m.displayMu.Unlock()
	m.writeDisplay(text)
}

// showCountdown drops the update if the session was cancelled, so a late
// countdown tick never overwrites the loop's text.
func (m *Monitor) showCountdown(s *logic.Session, text string) {
	m.displayMu.Lock()
	defer m.displayMu.Unlock()
	if s.CancelRequested() {
		return
	}
	m.writeDisplay(text)
}

func (m *Monitor) writeDisplay(text string) {
	if err := m.deps.Sink.Show(text); err != nil {
		m.logger.Error("actuator fault", zap.String("op", "show"), zap.Error(err))
	}
	if m.deps.Tracker != nil {
		m.deps.Tracker.SetDisplay(text)
	}
}

func (m *Monitor) publish(a logic.Action, typ mqtt.EpisodeEventType) {
	if m.deps.Publisher == nil {
		return
	}
	room, _ := m.deps.Oracle.Room()
	event := mqtt.EpisodeEvent{
		Timestamp: a.Time,
		Type:      typ,
		EpisodeID: a.EpisodeID,
		Reason:    a.Reason,
		State:     m.machine.State(),
		RoomID:    string(room),
	}
	if err := m.deps.Publisher.PublishEpisode(event); err != nil {
		m.logger.Warn("publish episode event", zap.String("event", string(typ)), zap.Error(err))
	}
}

func (m *Monitor) logTransition(prev logic.State, now time.Time) {
	cur := m.machine.State()
	if cur == prev {
		return
	}
	m.logger.Info("state changed", zap.String("from", string(prev)), zap.String("to", string(cur)))
	if cur == logic.StateOccupied {
		m.publish(logic.Action{Time: now}, mqtt.EventOccupied)
	}
}

func (m *Monitor) updateStatus(now time.Time) {
	tr := m.deps.Tracker
	if tr == nil {
		return
	}
	tr.Update(m.machine.Snapshot(now))
	room, ok := m.deps.Oracle.Room()
	tr.SetRoom(string(room), ok)
	if m.deps.MQTTStatus != nil {
		tr.SetMQTTConnected(m.deps.MQTTStatus.IsConnected())
	}
}

func (m *Monitor) checkHeartbeat(now time.Time) {
	if m.cfg.Heartbeat <= 0 || now.Sub(m.lastHeartbeat) < m.cfg.Heartbeat {
		return
	}
	m.lastHeartbeat = now

	counts := m.machine.Counts()
	m.logger.Info("heartbeat",
		zap.String("state", string(m.machine.State())),
		zap.Int("countdowns", counts.Countdowns),
		zap.Int("cancelled", counts.Cancelled),
		zap.Int("alerts", counts.Alerts),
		zap.Int("overrides", counts.Overrides),
	)

	if m.deps.Publisher == nil {
		return
	}
	event := mqtt.SystemEvent{Timestamp: now, Event: "HEARTBEAT", Retained: true}
	if m.deps.Tracker != nil {
		if m.deps.Network != nil {
			if info := m.deps.Network(); info != nil {
				m.deps.Tracker.SetNetwork(info)
			}
		}
		event.RawPayload = status.FormatStatusEvent(m.deps.Tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := m.deps.Publisher.PublishSystem(event); err != nil {
		m.logger.Warn("heartbeat publish error", zap.Error(err))
	}
}

func (m *Monitor) shutdown(cancel context.CancelFunc) {
	if s := m.machine.Session(); s != nil {
		s.Cancel()
	}
	cancel()
	m.wg.Wait()

	if m.machine.Snapshot(m.now()).Alerting {
		if err := m.deps.Sink.EndAlert(); err != nil {
			m.logger.Error("actuator fault", zap.String("op", "end_alert"), zap.Error(err))
		}
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, oracle.ErrRoomUnresolved):
		return "room_unresolved"
	case errors.Is(err, oracle.ErrUnreachable):
		return "unreachable"
	case errors.Is(err, oracle.ErrMalformed):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "unknown"
}

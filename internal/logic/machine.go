package logic

import (
	"strconv"
	"time"
)

// Config holds the decision thresholds.
type Config struct {
	MotionDebounce   time.Duration
	LightDebounce    time.Duration
	PresenceDebounce time.Duration
	// Countdown is how long a debounced trigger must persist before alerting.
	Countdown time.Duration
	// Cooldown is how long the machine stays in Alerting after an alert fires.
	Cooldown time.Duration
	// Buzz is how long the physical alert sounds before EndAlert.
	Buzz time.Duration
}

// cancelHold is how long "Countdown cancelled" stays on the display before
// it reverts to the monitoring text.
const cancelHold = 2 * time.Second

// Machine is the occupancy state machine. It is not safe for concurrent use:
// the decision loop owns it and feeds it one Input per tick.
type Machine struct {
	cfg Config

	state    State
	status   OccupancyStatus
	motion   *Timer
	light    *Timer
	presence *Timer

	session   *Session
	sessionID uint64

	episodeID   string
	alertReason Reason
	alertStart  time.Time
	buzzing     bool

	// cancelShownAt is when the cancel text was put up; zero once replaced.
	cancelShownAt time.Time

	// latched holds reasons that already produced an alert during their
	// current continuous interval. A latch is released when its signal drops.
	latched map[Reason]bool

	last    Reading
	counts  Counts
	newID   func() string
	episode uint64
}

// Option configures a Machine.
type Option func(*Machine)

// WithEpisodeIDs sets the episode ID generator. The default is a process-local sequence.
func WithEpisodeIDs(fn func() string) Option {
	return func(m *Machine) {
		m.newID = fn
	}
}

// NewMachine creates a machine in the Monitoring state.
func NewMachine(cfg Config, opts ...Option) *Machine {
	m := &Machine{
		cfg:      cfg,
		state:    StateMonitoring,
		motion:   NewTimer(cfg.MotionDebounce),
		light:    NewTimer(cfg.LightDebounce),
		presence: NewTimer(cfg.PresenceDebounce),
		latched:  make(map[Reason]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.newID == nil {
		m.newID = func() string {
			m.episode++
			return "episode-" + strconv.FormatUint(m.episode, 10)
		}
	}
	return m
}

// Tick evaluates one decision tick and returns the side effects to execute, in order.
//
// Priority: oracle override, then alert cool-down, then direct human detection,
// then debounced motion/light countdowns.
func (m *Machine) Tick(in Input) []Action {
	actions := m.tick(in)
	if !m.cancelShownAt.IsZero() && m.state == StateMonitoring && in.Time.Sub(m.cancelShownAt) >= cancelHold {
		m.cancelShownAt = time.Time{}
		actions = append(actions, show(in.Time, TextMonitoring))
	}
	return actions
}

func (m *Machine) tick(in Input) []Action {
	var actions []Action
	now := in.Time
	m.status = in.Status

	r := in.Reading
	if r != nil {
		m.motion.Observe(r.MotionPresent, now)
		m.light.Observe(r.LightOn, now)
		m.presence.Observe(r.HumanPresent && r.LightOn, now)
		m.releaseLatches(*r)
		m.last = *r
	}

	if in.Status == StatusOccupied {
		return m.enterOccupied(now)
	}
	if m.state == StateOccupied {
		m.state = StateMonitoring
		actions = append(actions, show(now, TextMonitoring))
	}

	if m.state == StateAlerting {
		// The display goes back to monitoring when the buzzer stops, even
		// though the cool-down keeps the episode open.
		if m.buzzing && (now.Sub(m.alertStart) >= m.cfg.Buzz || now.Sub(m.alertStart) >= m.cfg.Cooldown) {
			m.buzzing = false
			actions = append(actions,
				Action{Type: ActionEndAlert, Time: now, Reason: m.alertReason, EpisodeID: m.episodeID},
				show(now, TextMonitoring),
			)
		}
		if now.Sub(m.alertStart) < m.cfg.Cooldown {
			// New triggers are deferred until the cool-down ends.
			return actions
		}
		m.state = StateMonitoring
		m.alertReason = ""
		m.episodeID = ""
	}

	if r == nil {
		return actions
	}

	if r.HumanPresent && !m.latched[ReasonHuman] {
		if m.session != nil {
			// Superseded by the direct trigger; no display change.
			actions = append(actions, m.cancelSession(now, ""))
		}
		return append(actions, m.fire(ReasonHuman, "", now)...)
	}

	if m.session != nil {
		if m.signal(m.session.Reason) {
			return actions
		}
		actions = append(actions, m.cancelSession(now, TextCancelled))
	}

	for _, c := range []struct {
		reason Reason
		timer  *Timer
	}{
		{ReasonMotion, m.motion},
		{ReasonLight, m.light},
	} {
		if c.timer.Flagged() && !m.latched[c.reason] {
			return append(actions, m.startSession(c.reason, now))
		}
	}

	if m.session == nil && m.state == StateCountingDown {
		m.state = StateMonitoring
	}
	return actions
}

// CountdownDone is called by the decision loop when a countdown task reports
// completion. Stale or cancelled sessions are ignored.
func (m *Machine) CountdownDone(s *Session, now time.Time) []Action {
	if s == nil || s != m.session || s.CancelRequested() {
		return nil
	}
	if m.status == StatusOccupied || m.state != StateCountingDown {
		return nil
	}
	m.session = nil
	return m.fire(s.Reason, s.EpisodeID, now)
}

func (m *Machine) enterOccupied(now time.Time) []Action {
	var actions []Action
	if m.session != nil {
		actions = append(actions, m.cancelSession(now, ""))
	}
	if m.buzzing {
		m.buzzing = false
		actions = append(actions, Action{Type: ActionEndAlert, Time: now, Reason: m.alertReason, EpisodeID: m.episodeID})
	}
	m.motion.Reset()
	m.light.Reset()
	for k := range m.latched {
		delete(m.latched, k)
	}
	m.alertReason = ""
	m.episodeID = ""
	m.cancelShownAt = time.Time{}

	if m.state != StateOccupied {
		m.state = StateOccupied
		m.counts.Overrides++
		actions = append(actions, show(now, TextUsing))
	}
	return actions
}

func (m *Machine) startSession(reason Reason, now time.Time) Action {
	m.sessionID++
	s := &Session{
		ID:        m.sessionID,
		EpisodeID: m.newID(),
		Reason:    reason,
		StartedAt: now,
		Duration:  m.cfg.Countdown,
	}
	m.session = s
	m.state = StateCountingDown
	m.cancelShownAt = time.Time{}
	m.counts.Countdowns++
	return Action{Type: ActionStartCountdown, Time: now, Reason: reason, EpisodeID: s.EpisodeID, Session: s}
}

func (m *Machine) cancelSession(now time.Time, text string) Action {
	s := m.session
	s.Cancel()
	m.session = nil
	m.state = StateMonitoring
	m.counts.Cancelled++
	if text == TextCancelled {
		m.cancelShownAt = now
	}
	return Action{Type: ActionCancelCountdown, Time: now, Reason: s.Reason, EpisodeID: s.EpisodeID, Session: s, Text: text}
}

// fire enters Alerting and emits the alert side effects. The flag post comes
// first so a slow oracle never delays the buzzer behind it.
func (m *Machine) fire(reason Reason, episodeID string, now time.Time) []Action {
	if episodeID == "" {
		episodeID = m.newID()
	}
	m.state = StateAlerting
	m.cancelShownAt = time.Time{}
	m.alertReason = reason
	m.alertStart = now
	m.episodeID = episodeID
	m.buzzing = true
	m.counts.Alerts++

	m.latched[reason] = true
	for _, r := range []Reason{ReasonHuman, ReasonMotion, ReasonLight} {
		if m.signal(r) {
			m.latched[r] = true
		}
	}

	return []Action{
		{Type: ActionPostFlag, Time: now, Reason: reason, EpisodeID: episodeID},
		{Type: ActionBeginAlert, Time: now, Reason: reason, EpisodeID: episodeID},
		show(now, TextBuzzing),
	}
}

func (m *Machine) releaseLatches(r Reading) {
	if !r.HumanPresent {
		delete(m.latched, ReasonHuman)
	}
	if !r.MotionPresent {
		delete(m.latched, ReasonMotion)
	}
	if !r.LightOn {
		delete(m.latched, ReasonLight)
	}
}

func (m *Machine) signal(reason Reason) bool {
	switch reason {
	case ReasonHuman:
		return m.last.HumanPresent
	case ReasonMotion:
		return m.last.MotionPresent
	case ReasonLight:
		return m.last.LightOn
	}
	return false
}

func show(now time.Time, text string) Action {
	return Action{Type: ActionShow, Time: now, Text: text}
}

// State returns the current decision state.
func (m *Machine) State() State {
	return m.state
}

// Session returns the active countdown session, or nil.
func (m *Machine) Session() *Session {
	return m.session
}

// Counts returns a copy of the outcome counters.
func (m *Machine) Counts() Counts {
	return m.counts
}

// Snapshot is a point-in-time view of the machine for status consumers.
type Snapshot struct {
	State              State
	Status             OccupancyStatus
	Reason             Reason
	EpisodeID          string
	CountdownRemaining time.Duration
	Alerting           bool
	MotionFor          time.Duration
	LightFor           time.Duration
	PresenceFor        time.Duration
	PresenceConfirmed  bool
	Last               Reading
	Counts             Counts
}

// Snapshot returns the machine state as of now.
func (m *Machine) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		State:             m.state,
		Status:            m.status,
		Alerting:          m.buzzing,
		MotionFor:         m.motion.Elapsed(now),
		LightFor:          m.light.Elapsed(now),
		PresenceFor:       m.presence.Elapsed(now),
		PresenceConfirmed: m.presence.Flagged(),
		Last:              m.last,
		Counts:            m.counts,
	}
	switch {
	case m.session != nil:
		s.Reason = m.session.Reason
		s.EpisodeID = m.session.EpisodeID
		s.CountdownRemaining = m.session.Remaining(now)
	case m.state == StateAlerting:
		s.Reason = m.alertReason
		s.EpisodeID = m.episodeID
	}
	return s
}

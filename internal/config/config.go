// Package config loads the room-sentinel YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the daemon looks for its config file.
const DefaultPath = "/etc/room-sentinel/config.yaml"

// Config represents the overall application configuration.
type Config struct {
	Sensors  SensorsConfig  `yaml:"sensors"`
	Debounce DebounceConfig `yaml:"debounce"`
	Alert    AlertConfig    `yaml:"alert"`
	Loop     LoopConfig     `yaml:"loop"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Camera   CameraConfig   `yaml:"camera"`
	Buzzer   BuzzerConfig   `yaml:"buzzer"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// SensorsConfig holds the signal sampler thresholds.
type SensorsConfig struct {
	BrightnessThreshold  float64 `yaml:"brightness_threshold"`
	MotionPixelThreshold uint8   `yaml:"motion_pixel_threshold"`
	MotionAreaRatio      float64 `yaml:"motion_area_ratio"`

	// PersonDetectorURL is an optional HTTP endpoint that classifies frames.
	// Empty disables person detection.
	PersonDetectorURL string        `yaml:"person_detector_url"`
	PersonMinScore    float64       `yaml:"person_min_score"`
	PersonTimeout     time.Duration `yaml:"person_timeout"`
}

// DebounceConfig holds how long each signal must persist before it is flagged.
type DebounceConfig struct {
	Motion   time.Duration `yaml:"motion"`
	Light    time.Duration `yaml:"light"`
	Presence time.Duration `yaml:"presence"`
}

// AlertConfig holds the countdown and alert timings.
type AlertConfig struct {
	Countdown     time.Duration `yaml:"countdown"`
	Cooldown      time.Duration `yaml:"cooldown"`
	Buzz          time.Duration `yaml:"buzz"`
	CountdownStep time.Duration `yaml:"countdown_step"`
}

// LoopConfig holds the decision loop cadence.
type LoopConfig struct {
	Tick         time.Duration `yaml:"tick"`
	FrameTimeout time.Duration `yaml:"frame_timeout"`
	Heartbeat    time.Duration `yaml:"heartbeat"`
}

// OracleConfig holds the schedule oracle connection settings.
type OracleConfig struct {
	BaseURL           string        `yaml:"base_url"`
	InstallCode       string        `yaml:"install_code"`
	Timeout           time.Duration `yaml:"timeout"`
	StatusInterval    time.Duration `yaml:"status_interval"`
	StatusTTL         time.Duration `yaml:"status_ttl"`
	ResolveBackoffMin time.Duration `yaml:"resolve_backoff_min"`
	ResolveBackoffMax time.Duration `yaml:"resolve_backoff_max"`
}

// CameraConfig holds the frame source settings.
type CameraConfig struct {
	SnapshotURL string `yaml:"snapshot_url"`
}

// BuzzerConfig holds the GPIO buzzer settings.
type BuzzerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip"`
	Pin     int    `yaml:"pin"`
}

// MQTTConfig holds the telemetry broker settings. An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// HTTPConfig holds the status server settings. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Sensors: SensorsConfig{
			BrightnessThreshold:  100,
			MotionPixelThreshold: 25,
			MotionAreaRatio:      0.01,
			PersonMinScore:       0.5,
			PersonTimeout:        2 * time.Second,
		},
		Debounce: DebounceConfig{
			Motion:   5 * time.Second,
			Light:    0,
			Presence: 5 * time.Second,
		},
		Alert: AlertConfig{
			Countdown:     60 * time.Second,
			Cooldown:      30 * time.Second,
			Buzz:          3 * time.Second,
			CountdownStep: time.Second,
		},
		Loop: LoopConfig{
			Tick:         time.Second,
			FrameTimeout: 800 * time.Millisecond,
			Heartbeat:    15 * time.Minute,
		},
		Oracle: OracleConfig{
			Timeout:           3 * time.Second,
			StatusInterval:    time.Second,
			StatusTTL:         10 * time.Second,
			ResolveBackoffMin: 2 * time.Second,
			ResolveBackoffMax: 2 * time.Minute,
		},
		Buzzer: BuzzerConfig{
			Chip: "gpiochip0",
			Pin:  18,
		},
		MQTT: MQTTConfig{
			ClientID:    "room-sentinel",
			TopicPrefix: "monitoring/room",
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the configuration from the given path on top of Default.
// A missing or empty file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Loop.Tick <= 0:
		return errors.New("loop.tick must be positive")
	case c.Loop.FrameTimeout <= 0:
		return errors.New("loop.frame_timeout must be positive")
	case c.Loop.Heartbeat < 0:
		return errors.New("loop.heartbeat must not be negative")
	case c.Alert.Countdown <= 0:
		return errors.New("alert.countdown must be positive")
	case c.Alert.CountdownStep <= 0:
		return errors.New("alert.countdown_step must be positive")
	case c.Alert.Cooldown < 0:
		return errors.New("alert.cooldown must not be negative")
	case c.Alert.Buzz < 0:
		return errors.New("alert.buzz must not be negative")
	case c.Debounce.Motion < 0, c.Debounce.Light < 0, c.Debounce.Presence < 0:
		return errors.New("debounce durations must not be negative")
	case c.Sensors.BrightnessThreshold < 0 || c.Sensors.BrightnessThreshold > 255:
		return errors.New("sensors.brightness_threshold must be within 0-255")
	case c.Sensors.MotionAreaRatio <= 0 || c.Sensors.MotionAreaRatio > 1:
		return errors.New("sensors.motion_area_ratio must be within (0, 1]")
	case c.Sensors.PersonDetectorURL != "" && c.Sensors.PersonTimeout <= 0:
		return errors.New("sensors.person_timeout must be positive when person_detector_url is set")
	case c.Oracle.Timeout <= 0:
		return errors.New("oracle.timeout must be positive")
	case c.Oracle.StatusInterval < 0:
		return errors.New("oracle.status_interval must not be negative")
	case c.Oracle.StatusTTL <= 0:
		return errors.New("oracle.status_ttl must be positive")
	case c.Oracle.ResolveBackoffMin <= 0 || c.Oracle.ResolveBackoffMax < c.Oracle.ResolveBackoffMin:
		return errors.New("oracle.resolve_backoff_min must be positive and not above resolve_backoff_max")
	case c.Buzzer.Enabled && c.Buzzer.Pin < 0:
		return errors.New("buzzer.pin must not be negative")
	case c.Log.Format != "json" && c.Log.Format != "console":
		return fmt.Errorf("log.format %q: want json or console", c.Log.Format)
	}

	for key, raw := range map[string]string{
		"oracle.base_url":             c.Oracle.BaseURL,
		"camera.snapshot_url":         c.Camera.SnapshotURL,
		"sensors.person_detector_url": c.Sensors.PersonDetectorURL,
	} {
		if err := checkURL(raw, "http", "https"); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if err := checkURL(c.MQTT.Broker, "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts"); err != nil {
		return fmt.Errorf("mqtt.broker: %w", err)
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q", u.Scheme)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 100.0, cfg.Sensors.BrightnessThreshold)
	assert.Equal(t, 5*time.Second, cfg.Debounce.Motion)
	assert.Equal(t, time.Duration(0), cfg.Debounce.Light)
	assert.Equal(t, 60*time.Second, cfg.Alert.Countdown)
	assert.Equal(t, 30*time.Second, cfg.Alert.Cooldown)
	assert.Equal(t, 3*time.Second, cfg.Alert.Buzz)
	assert.Equal(t, time.Second, cfg.Loop.Tick)
	assert.Equal(t, 800*time.Millisecond, cfg.Loop.FrameTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Loop.Heartbeat)
	assert.Equal(t, 3*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, "gpiochip0", cfg.Buzzer.Chip)
	assert.Equal(t, 18, cfg.Buzzer.Pin)
	assert.False(t, cfg.Buzzer.Enabled)
	assert.Equal(t, "monitoring/room", cfg.MQTT.TopicPrefix)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
sensors:
  brightness_threshold: 80
  person_detector_url: http://127.0.0.1:9000/detect
debounce:
  light: 2s
alert:
  countdown: 45s
oracle:
  base_url: https://schedule.example.edu/api
  install_code: LAB-3
mqtt:
  broker: tcp://192.168.1.200:1883
buzzer:
  enabled: true
  pin: 23
log:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 80.0, cfg.Sensors.BrightnessThreshold)
	assert.Equal(t, "http://127.0.0.1:9000/detect", cfg.Sensors.PersonDetectorURL)
	assert.Equal(t, 2*time.Second, cfg.Debounce.Light)
	assert.Equal(t, 45*time.Second, cfg.Alert.Countdown)
	assert.Equal(t, "https://schedule.example.edu/api", cfg.Oracle.BaseURL)
	assert.Equal(t, "LAB-3", cfg.Oracle.InstallCode)
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.MQTT.Broker)
	assert.True(t, cfg.Buzzer.Enabled)
	assert.Equal(t, 23, cfg.Buzzer.Pin)
	assert.Equal(t, "console", cfg.Log.Format)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 5*time.Second, cfg.Debounce.Motion)
	assert.Equal(t, 30*time.Second, cfg.Alert.Cooldown)
	assert.Equal(t, "gpiochip0", cfg.Buzzer.Chip)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "alert:\n  countdwn: 10s\n"))
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "loop:\n  tick: soon\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick", func(c *Config) { c.Loop.Tick = 0 }},
		{"zero frame timeout", func(c *Config) { c.Loop.FrameTimeout = 0 }},
		{"negative heartbeat", func(c *Config) { c.Loop.Heartbeat = -time.Second }},
		{"zero countdown", func(c *Config) { c.Alert.Countdown = 0 }},
		{"zero countdown step", func(c *Config) { c.Alert.CountdownStep = 0 }},
		{"negative cooldown", func(c *Config) { c.Alert.Cooldown = -time.Second }},
		{"negative buzz", func(c *Config) { c.Alert.Buzz = -time.Second }},
		{"negative motion debounce", func(c *Config) { c.Debounce.Motion = -time.Second }},
		{"negative light debounce", func(c *Config) { c.Debounce.Light = -time.Second }},
		{"brightness above range", func(c *Config) { c.Sensors.BrightnessThreshold = 300 }},
		{"zero area ratio", func(c *Config) { c.Sensors.MotionAreaRatio = 0 }},
		{"zero person timeout with detector", func(c *Config) {
			c.Sensors.PersonDetectorURL = "http://detector.local/detect"
			c.Sensors.PersonTimeout = 0
		}},
		{"zero oracle timeout", func(c *Config) { c.Oracle.Timeout = 0 }},
		{"negative status interval", func(c *Config) { c.Oracle.StatusInterval = -time.Second }},
		{"zero status ttl", func(c *Config) { c.Oracle.StatusTTL = 0 }},
		{"inverted backoff", func(c *Config) { c.Oracle.ResolveBackoffMax = time.Second; c.Oracle.ResolveBackoffMin = time.Minute }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"oracle url without host", func(c *Config) { c.Oracle.BaseURL = "http://" }},
		{"oracle url bad scheme", func(c *Config) { c.Oracle.BaseURL = "ftp://schedule.example.edu" }},
		{"camera url bad scheme", func(c *Config) { c.Camera.SnapshotURL = "rtsp://cam.local/stream" }},
		{"broker bad scheme", func(c *Config) { c.MQTT.Broker = "http://broker:1883" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsZeroLightDebounceAndDisabledSurfaces(t *testing.T) {
	cfg := Default()
	cfg.Debounce.Light = 0
	cfg.Alert.Cooldown = 0
	cfg.Loop.Heartbeat = 0
	cfg.HTTP.Addr = ""
	cfg.MQTT.Broker = ""
	cfg.Sensors.PersonDetectorURL = ""
	cfg.Sensors.PersonTimeout = 0

	assert.NoError(t, cfg.Validate())
}

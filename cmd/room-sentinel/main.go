// Command room-sentinel watches a room through a camera and raises an alert
// when the room is in use outside its scheduled booking.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/room-sentinel/internal/actuator"
	"github.com/sweeney/room-sentinel/internal/camera"
	"github.com/sweeney/room-sentinel/internal/config"
	"github.com/sweeney/room-sentinel/internal/logging"
	"github.com/sweeney/room-sentinel/internal/logic"
	"github.com/sweeney/room-sentinel/internal/monitor"
	"github.com/sweeney/room-sentinel/internal/mqtt"
	"github.com/sweeney/room-sentinel/internal/oracle"
	"github.com/sweeney/room-sentinel/internal/sampler"
	"github.com/sweeney/room-sentinel/internal/status"
	"github.com/sweeney/room-sentinel/internal/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML config file")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	printReading := flag.Bool("print-reading", false, "Sample one frame, print the reading and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: load config: %v", err)
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg, *printReading); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printReading bool) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "room-sentinel")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Camera.SnapshotURL == "" {
		return errors.New("camera.snapshot_url is required")
	}
	cam := camera.NewSnapshotSource(cfg.Camera.SnapshotURL, cfg.Loop.FrameTimeout)
	defer cam.Close()

	smp := sampler.New(sampler.Config{
		BrightnessThreshold:  cfg.Sensors.BrightnessThreshold,
		MotionPixelThreshold: cfg.Sensors.MotionPixelThreshold,
		MotionAreaRatio:      cfg.Sensors.MotionAreaRatio,
	}, personDetector(cfg.Sensors), logger.Named("sampler"))

	// Print reading mode
	if printReading {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Loop.FrameTimeout+cfg.Sensors.PersonTimeout)
		defer cancel()
		frame, err := cam.Grab(ctx)
		if err != nil {
			return fmt.Errorf("grab frame: %w", err)
		}
		r := smp.Sample(ctx, frame, time.Now())
		fmt.Printf("human: %s, motion: %s, light: %s\n", onOff(r.HumanPresent), onOff(r.MotionPresent), onOff(r.LightOn))
		return nil
	}

	var orc monitor.Oracle = oracle.Disabled{}
	if cfg.Oracle.BaseURL != "" {
		client := oracle.NewHTTPClient(cfg.Oracle.BaseURL, cfg.Oracle.Timeout, logger.Named("oracle"))
		orc = oracle.NewService(client, oracle.ServiceConfig{
			InstallCode:       cfg.Oracle.InstallCode,
			StatusInterval:    cfg.Oracle.StatusInterval,
			StatusTTL:         cfg.Oracle.StatusTTL,
			ResolveBackoffMin: cfg.Oracle.ResolveBackoffMin,
			ResolveBackoffMax: cfg.Oracle.ResolveBackoffMax,
		}, logger.Named("oracle"))
	} else {
		logger.Warn("oracle disabled, every status reads as unknown")
	}

	sinks := actuator.Multi{actuator.NewDisplay(logger.Named("display"))}
	if cfg.Buzzer.Enabled {
		buzzer, err := actuator.NewBuzzer(cfg.Buzzer.Chip, cfg.Buzzer.Pin)
		if err != nil {
			return fmt.Errorf("init buzzer: %w", err)
		}
		defer buzzer.Close()
		sinks = append(sinks, buzzer)
	}

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		rp := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, mqtt.NewTopics(cfg.MQTT.TopicPrefix), logger.Named("mqtt"))
		defer rp.Close()
		publisher, mqttStatus = rp, rp
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:           cfg.Loop.Tick.Milliseconds(),
		FrameTimeoutMs:   cfg.Loop.FrameTimeout.Milliseconds(),
		MotionDebounceMs: cfg.Debounce.Motion.Milliseconds(),
		LightDebounceMs:  cfg.Debounce.Light.Milliseconds(),
		CountdownMs:      cfg.Alert.Countdown.Milliseconds(),
		CooldownMs:       cfg.Alert.Cooldown.Milliseconds(),
		BuzzMs:           cfg.Alert.Buzz.Milliseconds(),
		HeartbeatMs:      cfg.Loop.Heartbeat.Milliseconds(),
		Broker:           cfg.MQTT.Broker,
		HTTPAddr:         cfg.HTTP.Addr,
		OracleURL:        cfg.Oracle.BaseURL,
		InstallCode:      cfg.Oracle.InstallCode,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if publisher != nil {
		publishSystem(publisher, tracker, logger, mqtt.SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	}

	frames := &camera.Latest{}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, frames, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", zap.String("addr", cfg.HTTP.Addr))
	}

	mon := monitor.New(monitor.Config{
		Machine: logic.Config{
			MotionDebounce:   cfg.Debounce.Motion,
			LightDebounce:    cfg.Debounce.Light,
			PresenceDebounce: cfg.Debounce.Presence,
			Countdown:        cfg.Alert.Countdown,
			Cooldown:         cfg.Alert.Cooldown,
			Buzz:             cfg.Alert.Buzz,
		},
		FrameTimeout:  cfg.Loop.FrameTimeout,
		CountdownStep: cfg.Alert.CountdownStep,
		Heartbeat:     cfg.Loop.Heartbeat,
	}, monitor.Deps{
		Camera:     cam,
		Sampler:    smp,
		Oracle:     orc,
		Sink:       sinks,
		Frames:     frames,
		Publisher:  publisher,
		MQTTStatus: mqttStatus,
		Tracker:    tracker,
		Network:    readNetworkInfo,
		Logger:     logger.Named("monitor"),
	})

	logger.Info("started",
		zap.Duration("tick", cfg.Loop.Tick),
		zap.Duration("countdown", cfg.Alert.Countdown),
		zap.String("camera", cfg.Camera.SnapshotURL),
		zap.String("oracle", cfg.Oracle.BaseURL),
		zap.String("broker", cfg.MQTT.Broker),
		zap.Duration("heartbeat", cfg.Loop.Heartbeat),
	)

	ticker := time.NewTicker(cfg.Loop.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(mon, publisher, tracker, logger, time.Now, ticker.C, sigCh)
}

// runLoop runs the monitor until a signal arrives, then publishes SHUTDOWN
// once the monitor has drained its countdowns and flag posts.
func runLoop(mon *monitor.Monitor, publisher mqtt.Publisher, tracker *status.Tracker, logger *zap.Logger, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- mon.Run(ctx, tick)
	}()

	select {
	case err := <-errCh:
		return err

	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
		cancel()
		if err := <-errCh; err != nil {
			return err
		}

		signalName := "UNKNOWN"
		if s == syscall.SIGINT {
			signalName = "SIGINT"
		} else if s == syscall.SIGTERM {
			signalName = "SIGTERM"
		}
		if publisher != nil {
			publishSystem(publisher, tracker, logger, mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			})
		}
		return nil
	}
}

// publishSystem attaches the tracker's status payload and publishes event.
// Failures are logged, never fatal.
func publishSystem(publisher mqtt.Publisher, tracker *status.Tracker, logger *zap.Logger, event mqtt.SystemEvent) {
	if tracker != nil {
		event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), event.Event, event.Reason)
	}
	if err := publisher.PublishSystem(event); err != nil {
		logger.Warn("failed to publish system event", zap.String("event", event.Event), zap.Error(err))
		return
	}
	logger.Info("published system event", zap.String("event", event.Event))
}

func personDetector(cfg config.SensorsConfig) sampler.PersonDetector {
	if cfg.PersonDetectorURL == "" {
		return nil
	}
	d := sampler.NewRemoteDetector(cfg.PersonDetectorURL, cfg.PersonTimeout)
	d.MinScore = cfg.PersonMinScore
	return d
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

package web

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/room-sentinel/internal/camera"
	"github.com/sweeney/room-sentinel/internal/logic"
	"github.com/sweeney/room-sentinel/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *camera.Latest) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		TickMs:      1000,
		CountdownMs: 60000,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
	}
	tr := status.NewTracker(start, cfg)
	frames := &camera.Latest{}
	srv := New(":0", tr, frames, zap.NewNop())
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr, frames
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.Snapshot{
		State:     logic.StateAlerting,
		Status:    logic.StatusFree,
		Reason:    logic.ReasonHuman,
		EpisodeID: "ep-1",
		Alerting:  true,
		Counts:    logic.Counts{Alerts: 5, Cancelled: 2},
	})
	tr.SetMQTTConnected(true)
	tr.SetRoom("12", true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "ALERTING" {
		t.Errorf("State: got %q, want ALERTING", sj.Status.State)
	}
	if sj.Status.Occupancy != "FREE" {
		t.Errorf("Occupancy: got %q, want FREE", sj.Status.Occupancy)
	}
	if sj.Status.Episode == nil || !sj.Status.Episode.Alerting {
		t.Errorf("expected alerting episode, got %+v", sj.Status.Episode)
	}
	if sj.Status.Room.ID != "12" {
		t.Errorf("Room.ID: got %q, want 12", sj.Status.Room.ID)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Alerts != 5 {
		t.Errorf("Counts.Alerts: got %d, want 5", sj.Status.Counts.Alerts)
	}
	if sj.Status.Counts.Cancelled != 2 {
		t.Errorf("Counts.Cancelled: got %d, want 2", sj.Status.Counts.Cancelled)
	}
	if sj.Status.Config.TickMs != 1000 {
		t.Errorf("Config.TickMs: got %d, want 1000", sj.Status.Config.TickMs)
	}
}

func TestJSONUnknownStateBeforeFirstTick(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	json.NewDecoder(resp.Body).Decode(&sj)

	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before first tick: got %q, want UNKNOWN", sj.Status.State)
	}
	if sj.Status.Occupancy != "UNKNOWN" {
		t.Errorf("Occupancy before first tick: got %q, want UNKNOWN", sj.Status.Occupancy)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	json.NewDecoder(resp.Body).Decode(&sj)

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.Snapshot{State: logic.StateCountingDown, Reason: logic.ReasonLight, EpisodeID: "ep-2", CountdownRemaining: 12 * time.Second})
	tr.SetDisplay("Countdown: 12s (Light)")

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"COUNTING_DOWN", "Countdown: 12s (Light)", "ep-2", "12000ms"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestSnapshotBeforeFirstFrame(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/snapshot.jpg")
	if err != nil {
		t.Fatalf("GET /snapshot.jpg: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestSnapshotServesLatestFrame(t *testing.T) {
	ts, _, frames := newTestServer(t)

	img := image.NewGray(image.Rect(0, 0, 16, 12))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetGray(0, 0, color.Gray{Y: 10})
	frames.Store(img, time.Now())

	resp, err := http.Get(ts.URL + "/snapshot.jpg")
	if err != nil {
		t.Fatalf("GET /snapshot.jpg: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type: got %q, want image/jpeg", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	decoded, err := jpeg.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds().Dx() != 16 || decoded.Bounds().Dy() != 12 {
		t.Errorf("bounds: got %v", decoded.Bounds())
	}
}

func TestSnapshotWithoutFrameSource(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	srv := New(":0", tr, nil, zap.NewNop())
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/snapshot.jpg")
	if err != nil {
		t.Fatalf("GET /snapshot.jpg: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	resp1, _ := http.Get(ts.URL + "/index.json")
	var sj1 status.StatusJSON
	json.NewDecoder(resp1.Body).Decode(&sj1)
	resp1.Body.Close()
	if sj1.Status.Room.Resolved {
		t.Error("expected room unresolved initially")
	}

	tr.Update(logic.Snapshot{State: logic.StateOccupied, Status: logic.StatusOccupied})
	tr.SetRoom("7", true)
	tr.SetMQTTConnected(true)

	resp2, _ := http.Get(ts.URL + "/index.json")
	var sj2 status.StatusJSON
	json.NewDecoder(resp2.Body).Decode(&sj2)
	resp2.Body.Close()

	if !sj2.Status.Room.Resolved {
		t.Error("expected room resolved after update")
	}
	if sj2.Status.State != "OCCUPIED" {
		t.Errorf("State: got %q, want OCCUPIED", sj2.Status.State)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aptl-dev/aptl/internal/bridge"
	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/hardware"
	"github.com/aptl-dev/aptl/internal/motor"
	"github.com/aptl-dev/aptl/internal/mqtt"
	"github.com/aptl-dev/aptl/internal/network"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) { c.Advance(d) }

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeStation struct {
	up       bool
	apSSID   string
	connects int
}

func (s *fakeStation) Connect(_ context.Context, ssid, _ string) error {
	s.connects++
	if ssid == "" {
		return network.ErrNoSSID
	}
	if !s.up {
		return errors.New("no carrier")
	}
	return nil
}

func (s *fakeStation) Connected(context.Context) bool { return s.up }

func (s *fakeStation) StartAP(_ context.Context, ssid, _ string) error {
	s.apSSID = ssid
	return nil
}

func (s *fakeStation) Scan(context.Context) ([]network.AccessPoint, error) {
	return []network.AccessPoint{{SSID: "lab", RSSI: -40}}, nil
}

type published struct {
	topic   string
	payload string
}

type fakeBroker struct {
	cfg       mqtt.Config
	reachable bool
	connected bool
	connects  int
	published []published
}

func (b *fakeBroker) Connect(context.Context) error {
	b.connects++
	if !b.reachable {
		return errors.New("refused")
	}
	b.connected = true
	if b.cfg.OnConnect != nil {
		b.cfg.OnConnect()
	}
	return nil
}

func (b *fakeBroker) IsConnected() bool { return b.connected }

func (b *fakeBroker) Publish(topic string, payload []byte) error {
	b.published = append(b.published, published{topic, string(payload)})
	return nil
}

func (b *fakeBroker) Disconnect() { b.connected = false }

func (b *fakeBroker) count(topic string) int {
	n := 0
	for _, p := range b.published {
		if p.topic == topic {
			n++
		}
	}
	return n
}

type fixture struct {
	runner  *Runner
	store   *config.Store
	station *fakeStation
	broker  *fakeBroker
	clock   *fakeClock
	sim     *hardware.Sim
}

func newFixture(t *testing.T, wifiUp bool) *fixture {
	t.Helper()

	store, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if wifiUp {
		store.SetWiFiCredentials("lab", "secret123")
	}
	store.Update(func(r *config.Record) {
		r.HTTP.Listen = "127.0.0.1:0"
		r.LineCoordinates[2] = config.Unset()
	})

	f := &fixture{
		store:   store,
		station: &fakeStation{up: wifiUp},
		broker:  &fakeBroker{reachable: true},
		clock:   &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		sim:     hardware.NewSim(600, false),
	}
	ctrl := motor.New(motor.Config{
		Driver:   f.sim,
		Limit:    f.sim,
		Servos:   f.sim,
		Settings: store,
		Clock:    f.clock,
	})
	f.runner = New(Options{DeviceID: "24:6F:28:0A:1B:2C", Version: "1.0.0"}, Deps{
		Store:      store,
		Controller: ctrl,
		Station:    f.station,
		NewBroker: func(cfg mqtt.Config) Broker {
			f.broker.cfg = cfg
			return f.broker
		},
		Clock: f.clock,
	})
	return f
}

func (f *fixture) boot(t *testing.T) {
	t.Helper()
	if err := f.runner.Boot(context.Background()); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
}

func TestNew_BrokerConfig(t *testing.T) {
	f := newFixture(t, true)

	if f.broker.cfg.DeviceID != "24:6F:28:0A:1B:2C" {
		t.Errorf("broker DeviceID = %q", f.broker.cfg.DeviceID)
	}
	if f.broker.cfg.Sink != f.runner.Bridge() {
		t.Error("broker sink is not the bridge")
	}
	if f.store.DeviceID() != "24:6F:28:0A:1B:2C" {
		t.Errorf("store DeviceID = %q", f.store.DeviceID())
	}
}

func TestBoot_StationUp(t *testing.T) {
	f := newFixture(t, true)
	f.boot(t)

	if f.broker.connects != 1 || !f.broker.connected {
		t.Errorf("broker connects = %d connected = %v, want 1 true", f.broker.connects, f.broker.connected)
	}
	if f.station.apSSID != "" {
		t.Error("access point started while station is up")
	}

	st := f.runner.Status()
	if !st.Motor.Calibrated {
		t.Error("motor not calibrated after boot")
	}
	if st.Motor.MaxPositionMM != BootMaxPositionMM {
		t.Errorf("MaxPositionMM = %v, want %v", st.Motor.MaxPositionMM, BootMaxPositionMM)
	}
	if st.Motor.MaxPositionSetting {
		t.Error("max position setting left enabled")
	}
	if st.Motor.PositionMM != 0 {
		t.Errorf("PositionMM = %v, want 0", st.Motor.PositionMM)
	}
	if !st.WiFi.Connected || st.WiFi.Target != "lab" {
		t.Errorf("WiFi = %+v", st.WiFi)
	}
	if !st.MQTT.Connected {
		t.Error("MQTT link not reported connected")
	}
	if st.LineCoordinates["2"] != nil {
		t.Errorf("line 2 = %v, want nil", *st.LineCoordinates["2"])
	}
	if v := st.LineCoordinates["1"]; v == nil || *v != 0 {
		t.Errorf("line 1 = %v, want 0", v)
	}
	if st.DeviceID != "24:6F:28:0A:1B:2C" || st.Version != "1.0.0" {
		t.Errorf("identity = %q %q", st.DeviceID, st.Version)
	}
}

func TestBoot_StationDownStartsPortal(t *testing.T) {
	f := newFixture(t, false)
	if err := os.Remove(f.store.Path()); err != nil {
		t.Fatalf("remove config: %v", err)
	}
	f.boot(t)

	if f.station.apSSID != "APTL-Setup" {
		t.Errorf("AP SSID = %q, want APTL-Setup", f.station.apSSID)
	}
	if f.broker.connects != 0 {
		t.Errorf("broker connects = %d, want 0", f.broker.connects)
	}
	if _, err := os.Stat(f.store.Path()); err != nil {
		t.Errorf("config not saved on AP fallback: %v", err)
	}
	if !f.runner.Status().WiFi.AccessPoint {
		t.Error("status does not report the access point")
	}

	rec := httptest.NewRecorder()
	f.runner.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generate_204", nil))
	if rec.Code != http.StatusFound {
		t.Errorf("captive redirect status = %d, want %d", rec.Code, http.StatusFound)
	}

	// No station retries once the access point is up.
	connects := f.station.connects
	f.clock.Advance(time.Minute)
	f.runner.Tick(context.Background())
	if f.station.connects != connects {
		t.Error("station reconnect attempted in AP mode")
	}
}

func TestBoot_SkipCalibration(t *testing.T) {
	f := newFixture(t, true)
	f.runner.opts.SkipCalibration = true
	f.boot(t)

	if f.runner.Status().Motor.Calibrated {
		t.Error("calibrated with SkipCalibration")
	}
}

func TestTick_Cadence(t *testing.T) {
	f := newFixture(t, true)
	f.boot(t)
	ctx := context.Background()

	// The connect callback requests shared attributes on the first tick.
	f.runner.Tick(ctx)
	if got := f.broker.count(bridge.TopicRequest); got != 1 {
		t.Fatalf("shared requests = %d, want 1", got)
	}
	if got := f.broker.count(bridge.TopicTelemetry); got != 1 {
		t.Fatalf("telemetry = %d, want 1", got)
	}

	f.clock.Advance(500 * time.Millisecond)
	f.runner.Tick(ctx)
	if got := f.broker.count(bridge.TopicTelemetry); got != 1 {
		t.Errorf("telemetry after 0.5s = %d, want 1", got)
	}

	f.clock.Advance(500 * time.Millisecond)
	f.runner.Tick(ctx)
	if got := f.broker.count(bridge.TopicTelemetry); got != 2 {
		t.Errorf("telemetry after 1s = %d, want 2", got)
	}

	f.clock.Advance(4 * time.Second)
	f.runner.Tick(ctx)
	if got := f.broker.count(bridge.TopicRequest); got != 2 {
		t.Errorf("shared requests after 5s = %d, want 2", got)
	}
}

func TestTick_BrokerReconnect(t *testing.T) {
	f := newFixture(t, true)
	f.broker.reachable = false
	f.boot(t)
	ctx := context.Background()

	if f.broker.connects != 1 {
		t.Fatalf("connects after boot = %d, want 1", f.broker.connects)
	}

	// Boot calibrates after the first attempt, so part of the interval has
	// already passed on the fake clock.
	elapsed := f.clock.Now().Sub(f.runner.lastMQTTAttempt)
	f.clock.Advance(MQTTReconnectInterval - elapsed - 500*time.Millisecond)
	f.runner.Tick(ctx)
	if f.broker.connects != 1 {
		t.Errorf("reconnected before interval: connects = %d", f.broker.connects)
	}
	if f.broker.count(bridge.TopicTelemetry) != 0 {
		t.Error("published while disconnected")
	}

	f.broker.reachable = true
	f.clock.Advance(500 * time.Millisecond)
	f.runner.Tick(ctx)
	if f.broker.connects != 2 || !f.broker.connected {
		t.Errorf("connects = %d connected = %v, want 2 true", f.broker.connects, f.broker.connected)
	}
}

func TestTick_AttributeCommand(t *testing.T) {
	f := newFixture(t, true)
	f.boot(t)

	f.broker.cfg.Sink.Enqueue(bridge.TopicAttributes, []byte(`{"down":1}`))
	f.runner.Tick(context.Background())

	st := f.runner.Status()
	if st.Motor.PositionMM != bridge.JogDistanceMM {
		t.Errorf("PositionMM = %v, want %v", st.Motor.PositionMM, bridge.JogDistanceMM)
	}
	if st.StatusCode != bridge.StatusIdle {
		t.Errorf("StatusCode = %d, want idle", st.StatusCode)
	}
}

func TestTelemetryReachesHub(t *testing.T) {
	f := newFixture(t, true)
	f.boot(t)

	hub := f.runner.Server().Hub()
	go hub.Run()
	defer hub.Close()

	// No subscribers: Broadcast must not block the loop.
	f.runner.Tick(context.Background())
}

func TestRun_ExecAndRestart(t *testing.T) {
	f := newFixture(t, true)
	f.boot(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.runner.Run(ctx) }()

	var pos float64
	err := f.runner.Exec(ctx, func() {
		if _, err := f.runner.motor.MoveTo(20); err != nil {
			t.Errorf("MoveTo() error = %v", err)
		}
		pos = f.runner.motor.PositionMM()
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if pos != 20 {
		t.Errorf("position = %v, want 20", pos)
	}

	f.runner.Restart()
	select {
	case err := <-done:
		if !errors.Is(err, ErrRestartRequested) {
			t.Errorf("Run() error = %v, want ErrRestartRequested", err)
		}
	case <-ctx.Done():
		t.Fatal("Run did not return after Restart")
	}
	if f.broker.connected {
		t.Error("broker still connected after Run returned")
	}
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t, true)
	f.boot(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.runner.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

// Package app assembles the APTL device daemon: it owns the actuator and
// drives the connectivity supervisor, broker link, attribute bridge and
// local HTTP server from one loop.
package app

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/bridge"
	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/logging"
	"github.com/aptl-dev/aptl/internal/metrics"
	"github.com/aptl-dev/aptl/internal/motor"
	"github.com/aptl-dev/aptl/internal/mqtt"
	"github.com/aptl-dev/aptl/internal/network"
	"github.com/aptl-dev/aptl/internal/server"
)

// Loop cadence.
const (
	MQTTReconnectInterval   = 3 * time.Second
	SharedRequestInterval   = 5 * time.Second
	SubscriptionLogInterval = 2 * time.Second
	TelemetryInterval       = 1 * time.Second
	LoopDelay               = 50 * time.Millisecond
)

// BootMaxPositionMM is the travel limit applied after calibration.
const BootMaxPositionMM = 120.0

// ErrRestartRequested is returned by Run after new Wi-Fi credentials were
// saved through the portal.
var ErrRestartRequested = errors.New("restart requested")

// Broker is the MQTT link. *mqtt.Client satisfies it.
type Broker interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Publish(topic string, payload []byte) error
	Disconnect()
}

// BrokerFactory builds the broker link for the device. sink receives
// inbound messages and onConnect runs after every successful connect.
type BrokerFactory func(cfg mqtt.Config) Broker

// Station is the Wi-Fi interface the runner supervises.
type Station interface {
	network.Station
	Scan(ctx context.Context) ([]network.AccessPoint, error)
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Store      *config.Store
	Controller *motor.Controller
	Station    Station

	// NewBroker defaults to mqtt.New.
	NewBroker BrokerFactory

	Clock   motor.Clock
	Metrics *metrics.Collector
}

// Options tune a Runner.
type Options struct {
	DeviceID string
	Version  string

	// SkipCalibration leaves the carriage uncalibrated at boot.
	SkipCalibration bool
}

// Runner is the device main loop. The controller and bridge are only
// touched from the goroutine running Run; other goroutines submit work
// through Exec.
type Runner struct {
	opts    Options
	store   *config.Store
	motor   *motor.Controller
	station Station
	clock   motor.Clock
	metrics *metrics.Collector

	wifi   *network.Supervisor
	broker Broker
	bridge *bridge.Bridge
	server *server.Server

	exec    chan func()
	restart chan struct{}

	// requestShared is set by the broker's connect callback.
	requestShared atomic.Bool

	started         time.Time
	wifiUp          bool
	lastMQTTAttempt time.Time
	lastShared      time.Time
	lastSubLog      time.Time
	lastTelemetry   time.Time

	mu       sync.RWMutex
	snapshot server.Status
}

// New wires a Runner. It performs no I/O.
func New(opts Options, deps Deps) *Runner {
	clock := deps.Clock
	if clock == nil {
		clock = motor.SystemClock()
	}
	r := &Runner{
		opts:    opts,
		store:   deps.Store,
		motor:   deps.Controller,
		station: deps.Station,
		clock:   clock,
		metrics: deps.Metrics,
		exec:    make(chan func()),
		restart: make(chan struct{}, 1),
	}

	if opts.DeviceID != "" {
		r.store.SetDeviceID(opts.DeviceID)
	}

	nc := r.store.Network()
	r.wifi = network.NewSupervisor(network.SupervisorConfig{
		Station:       deps.Station,
		Credentials:   r.store.WiFiCredentials,
		APSSID:        nc.APSSID,
		APAddress:     nc.APAddress,
		OnAccessPoint: r.onAccessPoint,
		Metrics:       deps.Metrics,
	})

	r.bridge = bridge.New(bridge.Config{
		Actuator:    deps.Controller,
		Settings:    deps.Store,
		WiFi:        deps.Station,
		Publisher:   publisherFunc(r.publish),
		Clock:       clock,
		Metrics:     deps.Metrics,
		OnTelemetry: r.onTelemetry,
	})

	newBroker := deps.NewBroker
	if newBroker == nil {
		newBroker = func(cfg mqtt.Config) Broker { return mqtt.New(cfg) }
	}
	mq := r.store.MQTT()
	r.broker = newBroker(mqtt.Config{
		Host:      mq.Host,
		Port:      mq.Port,
		Token:     mq.Token,
		ClientID:  mq.ClientID,
		DeviceID:  r.store.DeviceID(),
		Sink:      r.bridge,
		OnConnect: r.onBrokerConnect,
		Metrics:   deps.Metrics,
	})

	r.server = server.New(server.Config{
		Listen:    r.store.HTTP().Listen,
		APAddress: nc.APAddress,
	}, server.Deps{
		Status:      r.Status,
		Credentials: deps.Store,
		Scanner:     deps.Station,
		Restart:     r.Restart,
		Metrics:     deps.Metrics,
	})

	return r
}

type publisherFunc func(topic string, payload []byte) error

func (f publisherFunc) Publish(topic string, payload []byte) error { return f(topic, payload) }

func (r *Runner) publish(topic string, payload []byte) error {
	if !r.broker.IsConnected() {
		return mqtt.ErrNotConnected
	}
	return r.broker.Publish(topic, payload)
}

// Server returns the local HTTP server.
func (r *Runner) Server() *server.Server {
	return r.server
}

// Bridge returns the attribute bridge.
func (r *Runner) Bridge() *bridge.Bridge {
	return r.bridge
}

// Boot runs the startup sequence: station connect or access point,
// broker connect, motor setup and calibration, then the boot travel limit.
func (r *Runner) Boot(ctx context.Context) error {
	r.started = r.clock.Now()
	logging.Info("Starting APTL device",
		zap.String("device_id", r.store.DeviceID()),
		zap.String("version", r.opts.Version),
	)

	r.wifiUp = r.wifi.Start(ctx, r.clock.Now())
	if r.wifiUp {
		r.connectBroker(ctx)
	}

	if err := r.motor.Setup(); err != nil {
		return err
	}
	mc := r.store.Motor()
	r.motor.SetIdleTimeout(time.Duration(mc.IdleTimeoutMS) * time.Millisecond)
	if mc.Speed != 0 && mc.Speed != motor.MinSpeed {
		if err := r.motor.SetSpeed(mc.Speed); err != nil {
			logging.Warn("Ignoring configured speed", zap.Int("speed", mc.Speed), zap.Error(err))
		}
	}

	if !r.opts.SkipCalibration {
		if err := r.motor.Calibrate(); err != nil {
			logging.Error("Calibration failed", zap.Error(err))
		}
	}
	r.metrics.SetCalibrated(r.motor.Calibrated())

	r.motor.SetMaxPositionSetting(true)
	if err := r.motor.SetMaximumPosition(BootMaxPositionMM); err != nil {
		logging.Warn("Failed to set boot max position", zap.Error(err))
	}
	r.motor.SetMaxPositionSetting(false)

	r.refreshSnapshot()
	return nil
}

// Run executes the device loop until ctx is cancelled or a restart is
// requested.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(LoopDelay)
	defer ticker.Stop()
	defer r.broker.Disconnect()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.restart:
			logging.Info("Restarting device")
			return ErrRestartRequested
		case fn := <-r.exec:
			fn()
			r.refreshSnapshot()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one loop iteration.
func (r *Runner) Tick(ctx context.Context) {
	r.motor.CheckIdle()
	r.bridge.Drain()
	r.bridge.ProcessCommands(ctx)

	now := r.clock.Now()
	r.wifiUp = r.wifi.Tick(ctx, now)

	if r.wifiUp && !r.broker.IsConnected() && now.Sub(r.lastMQTTAttempt) >= MQTTReconnectInterval {
		logging.LogConnection("mqtt", "reconnecting")
		r.connectBroker(ctx)
	}

	connected := r.broker.IsConnected()
	if connected && (r.requestShared.Swap(false) || now.Sub(r.lastShared) >= SharedRequestInterval) {
		r.lastShared = now
		if err := r.bridge.RequestShared(); err != nil {
			logging.Debug("Shared attribute request failed", zap.Error(err))
		}
	}
	if connected && now.Sub(r.lastSubLog) >= SubscriptionLogInterval {
		r.lastSubLog = now
		r.bridge.LogSubscription()
	}
	if now.Sub(r.lastTelemetry) >= TelemetryInterval {
		r.lastTelemetry = now
		r.bridge.PublishTelemetry()
	}

	r.refreshSnapshot()
}

// Exec runs fn on the loop goroutine and waits for it to finish.
func (r *Runner) Exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case r.exec <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Restart asks Run to return ErrRestartRequested.
func (r *Runner) Restart() {
	select {
	case r.restart <- struct{}{}:
	default:
	}
}

// Status returns the latest device snapshot. Safe for concurrent use.
func (r *Runner) Status() server.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

func (r *Runner) connectBroker(ctx context.Context) {
	r.lastMQTTAttempt = r.clock.Now()
	if err := r.broker.Connect(ctx); err != nil {
		logging.Warn("MQTT connect failed", zap.Error(err))
	}
}

// onBrokerConnect runs on a paho goroutine; the request goes out on the
// next tick.
func (r *Runner) onBrokerConnect() {
	r.requestShared.Store(true)
}

func (r *Runner) onAccessPoint() {
	if err := r.store.Save(); err != nil {
		logging.Error("Failed to save config", zap.Error(err))
	}
	r.server.SetPortal(true)
}

func (r *Runner) onTelemetry(t bridge.Telemetry) {
	r.server.Hub().Broadcast(t.Payload())
}

func (r *Runner) refreshSnapshot() {
	ms := r.motor.Status()
	r.metrics.SetCalibrated(ms.Calibrated)

	lines := make(map[string]*float64, config.LastLine)
	for line, mm := range r.store.LineCoordinates() {
		if math.IsNaN(mm) {
			lines[strconv.Itoa(line)] = nil
			continue
		}
		v := mm
		lines[strconv.Itoa(line)] = &v
	}

	ssid, _ := r.store.WiFiCredentials()
	mq := r.store.MQTT()
	status := server.Status{
		DeviceID:        r.store.DeviceID(),
		DeviceName:      r.store.DeviceName(),
		Version:         r.opts.Version,
		StatusCode:      r.bridge.Status(),
		Motor:           ms,
		LineCoordinates: lines,
		WiFi:            server.LinkStatus{Connected: r.wifiUp, Target: ssid, AccessPoint: r.wifi.APActive()},
		MQTT:            server.LinkStatus{Connected: r.broker.IsConnected(), Target: mqtt.BrokerURL(mq.Host, mq.Port)},
	}
	if !r.started.IsZero() {
		status.UptimeSeconds = int64(r.clock.Now().Sub(r.started) / time.Second)
	}

	r.mu.Lock()
	r.snapshot = status
	r.mu.Unlock()
}

package network

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
	"github.com/aptl-dev/aptl/internal/metrics"
)

const (
	// ReconnectInterval is the minimum time between station reconnect attempts.
	ReconnectInterval = 5 * time.Second

	// MaxFailedReconnects is the number of consecutive failed attempts after
	// which the supervisor falls back to the setup access point.
	MaxFailedReconnects = 5
)

// Station is the part of Manager the supervisor drives.
type Station interface {
	Connect(ctx context.Context, ssid, password string) error
	Connected(ctx context.Context) bool
	StartAP(ctx context.Context, ssid, address string) error
}

// SupervisorConfig wires a Supervisor.
type SupervisorConfig struct {
	Station     Station
	Credentials func() (ssid, password string)
	APSSID      string
	APAddress   string

	// OnAccessPoint runs after the access point comes up.
	OnAccessPoint func()

	Metrics *metrics.Collector
}

// Supervisor keeps the station link up and falls back to the setup access
// point after repeated failures. It is driven by Tick from the device loop.
type Supervisor struct {
	cfg         SupervisorConfig
	lastAttempt time.Time
	failures    int
	apActive    bool
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	return &Supervisor{cfg: cfg}
}

// Failures returns the consecutive failed reconnect count.
func (s *Supervisor) Failures() int {
	return s.failures
}

// APActive reports whether the setup access point has been started.
func (s *Supervisor) APActive() bool {
	return s.apActive
}

// Start makes the initial station connection. When it fails the access
// point is started immediately. It reports whether the station is up.
func (s *Supervisor) Start(ctx context.Context, now time.Time) bool {
	s.lastAttempt = now
	ssid, pass := s.cfg.Credentials()
	if err := s.cfg.Station.Connect(ctx, ssid, pass); err == nil && s.cfg.Station.Connected(ctx) {
		s.cfg.Metrics.SetLink("wifi", true)
		return true
	}
	logging.Warn("Wi-Fi not connected, starting access point")
	s.startAP(ctx)
	return false
}

// Tick checks the station link and retries at most once per
// ReconnectInterval. It reports whether the station is up. Once the access
// point is active no further station attempts are made.
func (s *Supervisor) Tick(ctx context.Context, now time.Time) bool {
	if s.apActive {
		return false
	}
	if s.cfg.Station.Connected(ctx) {
		s.failures = 0
		s.cfg.Metrics.SetLink("wifi", true)
		return true
	}
	s.cfg.Metrics.SetLink("wifi", false)

	if now.Sub(s.lastAttempt) < ReconnectInterval {
		return false
	}
	s.lastAttempt = now

	logging.Info("Wi-Fi disconnected, attempting to reconnect")
	ssid, pass := s.cfg.Credentials()
	if err := s.cfg.Station.Connect(ctx, ssid, pass); err == nil && s.cfg.Station.Connected(ctx) {
		s.failures = 0
		s.cfg.Metrics.SetLink("wifi", true)
		return true
	}

	s.failures++
	s.cfg.Metrics.ObserveWiFiFailure()
	logging.Warn("Wi-Fi reconnect failed",
		zap.Int("attempt", s.failures),
		zap.Int("max", MaxFailedReconnects),
	)
	if s.failures >= MaxFailedReconnects {
		logging.Warn("Max Wi-Fi reconnects reached, switching to access point")
		s.startAP(ctx)
	}
	return false
}

func (s *Supervisor) startAP(ctx context.Context) {
	if err := s.cfg.Station.StartAP(ctx, s.cfg.APSSID, s.cfg.APAddress); err != nil {
		logging.Error("Failed to start access point", zap.Error(err))
		return
	}
	s.apActive = true
	if s.cfg.OnAccessPoint != nil {
		s.cfg.OnAccessPoint()
	}
}

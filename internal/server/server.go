package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
	"github.com/aptl-dev/aptl/internal/metrics"
	"github.com/aptl-dev/aptl/internal/network"
)

// ShutdownTimeout bounds a graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Listen string // host:port, ":80" by default

	// Portal enables the captive-portal redirect for unknown paths. It is
	// set while the setup access point is active.
	Portal    bool
	APAddress string
}

// Deps are the device services the HTTP handlers read and write.
type Deps struct {
	// Status returns a snapshot of the device. It is called from HTTP
	// goroutines and must be safe for concurrent use.
	Status func() Status

	Credentials Provisioner
	Scanner     Scanner

	// Restart is called after new credentials are saved.
	Restart func()

	Metrics *metrics.Collector
}

// Provisioner persists Wi-Fi credentials.
type Provisioner interface {
	SetWiFiCredentials(ssid, password string)
	Save() error
}

// Scanner lists nearby networks.
type Scanner interface {
	Scan(ctx context.Context) ([]network.AccessPoint, error)
}

// Server is the device's local HTTP server: provisioning portal, status
// API, metrics and live telemetry.
type Server struct {
	config   Config
	deps     Deps
	engine   *gin.Engine
	hub      *Hub
	http     *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// New creates a Server. It does not listen until Start.
func New(config Config, deps Deps) *Server {
	if config.Listen == "" {
		config.Listen = ":80"
	}
	s := &Server{
		config: config,
		deps:   deps,
		hub:    NewHub(),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the telemetry broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// SetPortal toggles the captive-portal redirect.
func (s *Server) SetPortal(on bool) {
	s.mu.Lock()
	s.config.Portal = on
	s.mu.Unlock()
}

func (s *Server) portal() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Portal, s.config.APAddress
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	logging.Info("Starting HTTP server", zap.String("addr", s.config.Listen))

	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run()
	}()

	logging.Info("Server listening for connections", zap.String("addr", listener.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.hub.Close()
		s.wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down HTTP server...")

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	var err error
	if srv != nil {
		if err = srv.Shutdown(ctx); err != nil {
			logging.Error("Error shutting down HTTP server", zap.Error(err))
		}
	}

	// Closing the hub drops every websocket client.
	s.hub.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}
	return err
}

// GetActiveConnections returns the number of live telemetry websocket clients.
func (s *Server) GetActiveConnections() int {
	return s.hub.Count()
}

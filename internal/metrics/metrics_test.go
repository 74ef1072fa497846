package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.ObserveCommand("up", nil)
	c.ObserveCommand("up", errors.New("refused"))

	if got := testutil.ToFloat64(c.Commands.WithLabelValues("up")); got != 2 {
		t.Errorf("aptl_commands_total{up} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.CommandErrors.WithLabelValues("up")); got != 1 {
		t.Errorf("aptl_command_errors_total{up} = %v, want 1", got)
	}
}

func TestObserveTelemetry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.ObserveTelemetry(12.5, 11)
	c.ObserveSteps(125)
	c.SetLink("mqtt", true)

	if got := testutil.ToFloat64(c.Position); got != 12.5 {
		t.Errorf("aptl_position_mm = %v, want 12.5", got)
	}
	if got := testutil.ToFloat64(c.Status); got != 11 {
		t.Errorf("aptl_status_code = %v, want 11", got)
	}
	if got := testutil.ToFloat64(c.StepsTotal); got != 125 {
		t.Errorf("aptl_motor_steps_total = %v, want 125", got)
	}
	if got := testutil.ToFloat64(c.LinkUp.WithLabelValues("mqtt")); got != 1 {
		t.Errorf("aptl_link_up{mqtt} = %v, want 1", got)
	}
}

func TestNewTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(reg)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}

	first.ObserveSteps(3)
	if got := testutil.ToFloat64(second.StepsTotal); got != 3 {
		t.Errorf("shared counter = %v, want 3", got)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.ObserveCommand("x", nil)
	c.ObserveSteps(1)
	c.ObserveTelemetry(1, 1)
	c.SetCalibrated(true)
	c.SetLink("wifi", false)
	c.ObserveWiFiFailure()
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatal(err)
	}
	c.SetCalibrated(true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "aptl_calibrated 1") {
		t.Errorf("metrics output missing aptl_calibrated:\n%s", body)
	}
}

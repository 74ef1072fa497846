// Package metrics exposes Prometheus collectors for the APTL daemon.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the device metrics. All methods are safe on a nil
// receiver so components can run without metrics in tests.
type Collector struct {
	gatherer prometheus.Gatherer

	Commands       *prometheus.CounterVec
	CommandErrors  *prometheus.CounterVec
	StepsTotal     prometheus.Counter
	Telemetry      prometheus.Counter
	Position       prometheus.Gauge
	Status         prometheus.Gauge
	Calibrated     prometheus.Gauge
	LinkUp         *prometheus.GaugeVec
	WiFiReconnects prometheus.Counter
}

// New registers the device metrics against reg, defaulting to the global
// Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.Commands, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aptl_commands_total",
		Help: "Remote commands executed, labeled by command.",
	}, []string{"command"}), "aptl_commands_total"); err != nil {
		return nil, err
	}
	if c.CommandErrors, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aptl_command_errors_total",
		Help: "Remote commands refused by the actuator, labeled by command.",
	}, []string{"command"}), "aptl_command_errors_total"); err != nil {
		return nil, err
	}
	if c.StepsTotal, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aptl_motor_steps_total",
		Help: "Completed stepper pulses.",
	}), "aptl_motor_steps_total"); err != nil {
		return nil, err
	}
	if c.Telemetry, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aptl_telemetry_published_total",
		Help: "Telemetry records published to the broker.",
	}), "aptl_telemetry_published_total"); err != nil {
		return nil, err
	}
	if c.Position, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aptl_position_mm",
		Help: "Carriage position in millimetres.",
	}), "aptl_position_mm"); err != nil {
		return nil, err
	}
	if c.Status, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aptl_status_code",
		Help: "Last published status code.",
	}), "aptl_status_code"); err != nil {
		return nil, err
	}
	if c.Calibrated, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aptl_calibrated",
		Help: "1 when the carriage is calibrated.",
	}), "aptl_calibrated"); err != nil {
		return nil, err
	}
	if c.LinkUp, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aptl_link_up",
		Help: "1 when the link is connected, labeled by link (wifi, mqtt).",
	}, []string{"link"}), "aptl_link_up"); err != nil {
		return nil, err
	}
	if c.WiFiReconnects, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aptl_wifi_reconnect_failures_total",
		Help: "Failed Wi-Fi reconnect attempts.",
	}), "aptl_wifi_reconnect_failures_total"); err != nil {
		return nil, err
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveCommand counts a command and, when err is non-nil, its failure.
func (c *Collector) ObserveCommand(command string, err error) {
	if c == nil {
		return
	}
	c.Commands.WithLabelValues(command).Inc()
	if err != nil {
		c.CommandErrors.WithLabelValues(command).Inc()
	}
}

// ObserveSteps adds completed steps.
func (c *Collector) ObserveSteps(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.StepsTotal.Add(float64(n))
}

// ObserveTelemetry records a published telemetry record.
func (c *Collector) ObserveTelemetry(positionMM float64, status int) {
	if c == nil {
		return
	}
	c.Telemetry.Inc()
	c.Position.Set(positionMM)
	c.Status.Set(float64(status))
}

// SetCalibrated mirrors the calibrated flag.
func (c *Collector) SetCalibrated(ok bool) {
	if c == nil {
		return
	}
	c.Calibrated.Set(boolToFloat(ok))
}

// SetLink mirrors a link state.
func (c *Collector) SetLink(link string, up bool) {
	if c == nil {
		return
	}
	c.LinkUp.WithLabelValues(link).Set(boolToFloat(up))
}

// ObserveWiFiFailure counts a failed Wi-Fi reconnect.
func (c *Collector) ObserveWiFiFailure() {
	if c == nil {
		return
	}
	c.WiFiReconnects.Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

package config

import "math"

// CurrentVersion is the config file schema version.
const CurrentVersion = 1

// Line indexes understood by the keypad layout.
const (
	FirstLine = 1
	LastLine  = 4
)

// Record represents the entire persisted device configuration.
type Record struct {
	Version int `yaml:"version"`

	DeviceName   string `yaml:"device_name"`
	DeviceID     string `yaml:"device_id"`
	WiFiSSID     string `yaml:"wifi_ssid"`
	WiFiPassword string `yaml:"wifi_password"`

	MaxPosition     float64         `yaml:"max_position"`     // mm
	LineCoordinates map[int]float64 `yaml:"line_coordinates"` // line 1-4 -> mm

	MQTT     MQTTConfig     `yaml:"mqtt"`
	Motor    MotorConfig    `yaml:"motor"`
	Hardware HardwareConfig `yaml:"hardware"`
	Network  NetworkConfig  `yaml:"network"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// MQTTConfig holds the ThingsBoard broker connection settings.
// The device access token is sent as the MQTT username.
type MQTTConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Token    string `yaml:"token"`
	ClientID string `yaml:"client_id,omitempty"` // defaults to the device ID
}

// MotorConfig holds tunables for the actuator core.
type MotorConfig struct {
	IdleTimeoutMS int64 `yaml:"idle_timeout_ms"` // 0 disables the idle timer
	Speed         int   `yaml:"speed"`           // mm/s
}

// HardwareConfig selects and wires the hardware backend.
type HardwareConfig struct {
	Backend   string   `yaml:"backend"` // "gpio" or "sim"
	Chip      string   `yaml:"chip"`
	StepPin   int      `yaml:"step_pin"`
	DirPin    int      `yaml:"dir_pin"`
	EnablePin int      `yaml:"enable_pin"`
	LimitPin  int      `yaml:"limit_pin"`
	ServoPins []string `yaml:"servo_pins"` // left, middle, right
}

// NetworkConfig holds Wi-Fi station and provisioning AP settings.
type NetworkConfig struct {
	Interface string `yaml:"interface"`
	APSSID    string `yaml:"ap_ssid"`
	APAddress string `yaml:"ap_address"`
}

// HTTPConfig holds the local HTTP server settings.
type HTTPConfig struct {
	Listen    string `yaml:"listen"`
	Advertise bool   `yaml:"advertise"` // announce over mDNS
}

// Hardware backends.
const (
	BackendGPIO = "gpio"
	BackendSim  = "sim"
)

// NewRecord creates a Record with default values.
func NewRecord() Record {
	return Record{
		Version:     CurrentVersion,
		MaxPosition: 0,
		LineCoordinates: map[int]float64{
			1: 0, 2: 0, 3: 0, 4: 0,
		},
		MQTT: MQTTConfig{
			Host: "127.0.0.1",
			Port: 1883,
		},
		Motor: MotorConfig{
			IdleTimeoutMS: 60000,
			Speed:         50,
		},
		Hardware: HardwareConfig{
			Backend:   BackendGPIO,
			Chip:      "gpiochip0",
			StepPin:   23,
			DirPin:    22,
			EnablePin: 21,
			LimitPin:  24,
			ServoPins: []string{"GPIO12", "GPIO13", "GPIO18"},
		},
		Network: NetworkConfig{
			Interface: "wlan0",
			APSSID:    "APTL-Setup",
			APAddress: "192.168.4.1",
		},
		HTTP: HTTPConfig{
			Listen:    ":80",
			Advertise: true,
		},
	}
}

// Unset returns the sentinel stored for a line whose coordinate was never set.
func Unset() float64 {
	return math.NaN()
}

// IsUnset reports whether mm is the unset sentinel.
func IsUnset(mm float64) bool {
	return math.IsNaN(mm)
}

// clone returns a deep copy of r.
func (r Record) clone() Record {
	out := r
	out.LineCoordinates = make(map[int]float64, len(r.LineCoordinates))
	for k, v := range r.LineCoordinates {
		out.LineCoordinates[k] = v
	}
	out.Hardware.ServoPins = append([]string(nil), r.Hardware.ServoPins...)
	return out
}

// fillDefaults fills zero-valued sections that a hand-edited file may omit.
func (r *Record) fillDefaults() {
	def := NewRecord()
	if r.LineCoordinates == nil {
		r.LineCoordinates = make(map[int]float64)
	}
	if r.MQTT.Port == 0 {
		r.MQTT.Port = def.MQTT.Port
	}
	if r.Motor.Speed == 0 {
		r.Motor.Speed = def.Motor.Speed
	}
	if r.Hardware.Backend == "" {
		r.Hardware = def.Hardware
	}
	if len(r.Hardware.ServoPins) == 0 {
		r.Hardware.ServoPins = def.Hardware.ServoPins
	}
	if r.Network.Interface == "" {
		r.Network.Interface = def.Network.Interface
	}
	if r.Network.APSSID == "" {
		r.Network.APSSID = def.Network.APSSID
	}
	if r.Network.APAddress == "" {
		r.Network.APAddress = def.Network.APAddress
	}
	if r.HTTP.Listen == "" {
		r.HTTP.Listen = def.HTTP.Listen
	}
}

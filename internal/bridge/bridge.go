package bridge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
	"github.com/aptl-dev/aptl/internal/metrics"
	"github.com/aptl-dev/aptl/internal/motor"
)

// Status codes reported in the statusaptl telemetry field.
const (
	StatusIdle   = 0
	StatusToken  = 1
	StatusUp     = 11
	StatusDown   = 12
	StatusPress1 = 21
	StatusPress2 = 22
	StatusPress3 = 23
	StatusRow1   = 31
	StatusRow2   = 32
	StatusRow3   = 33
	StatusRow4   = 34
	StatusSetMax = 41
	StatusWiFi   = 51
)

const (
	// JogDistanceMM is how far one up/down command moves the carriage.
	JogDistanceMM = 10.0

	// KeyPressGap separates the presses of a token entry.
	KeyPressGap = 250 * time.Millisecond

	defaultQueueSize = 32

	// initialToken is the previous-token value before any token was seen, so
	// an empty token never triggers and a real one always does.
	initialToken = "default"
)

// Actuator is the part of motor.Controller the bridge drives.
type Actuator interface {
	MoveBy(deltaMM float64) (motor.Move, error)
	MoveTo(mm float64) (motor.Move, error)
	PressButton(servo int) error
	PressSpecificButton(button int) error
	SetMaxPositionSetting(on bool)
	SetMaximumPosition(mm float64) error
	PositionMM() float64
}

// Settings is the part of config.Store the bridge reads and writes.
type Settings interface {
	SetMaxPosition(mm float64)
	SetLineCoordinate(line int, mm float64)
	WiFiCredentials() (ssid, password string)
	SetWiFiCredentials(ssid, password string)
	Save() error
}

// WiFi re-provisions the station link.
type WiFi interface {
	Connect(ctx context.Context, ssid, password string) error
}

// Publisher sends a payload to the broker.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Telemetry is one telemetry record.
type Telemetry struct {
	Position float64 `json:"posisi"`
	Status   int     `json:"statusaptl"`
}

// Payload renders the record with the position at two decimals.
func (t Telemetry) Payload() []byte {
	return []byte(fmt.Sprintf(`{"posisi":%.2f,"statusaptl":%d}`, t.Position, t.Status))
}

// Config wires a Bridge.
type Config struct {
	Actuator  Actuator
	Settings  Settings
	WiFi      WiFi
	Publisher Publisher
	Clock     motor.Clock
	Metrics   *metrics.Collector
	QueueSize int

	// OnTelemetry, when set, receives every record the bridge emits.
	OnTelemetry func(Telemetry)
}

type message struct {
	topic   string
	payload []byte
}

// Bridge translates shared attribute changes into actuator calls and
// reports the outcome as telemetry.
//
// Enqueue may be called from any goroutine. Every other method must be
// called from the dispatch goroutine that owns the actuator.
type Bridge struct {
	actuator  Actuator
	settings  Settings
	wifi      WiFi
	publisher Publisher
	clock     motor.Clock
	metrics   *metrics.Collector
	observer  func(Telemetry)

	queue chan message

	cache   Attributes
	updated bool
	prev    Attributes
	status  int
}

// New creates a Bridge.
func New(cfg Config) *Bridge {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	clock := cfg.Clock
	if clock == nil {
		clock = motor.SystemClock()
	}
	return &Bridge{
		actuator:  cfg.Actuator,
		settings:  cfg.Settings,
		wifi:      cfg.WiFi,
		publisher: cfg.Publisher,
		clock:     clock,
		metrics:   cfg.Metrics,
		observer:  cfg.OnTelemetry,
		queue:     make(chan message, size),
		prev:      Attributes{KodeToken: initialToken},
	}
}

// Enqueue hands an incoming broker message to the dispatch goroutine. It
// never blocks; when the queue is full the message is dropped, which is
// harmless because shared attributes are re-requested periodically.
func (b *Bridge) Enqueue(topic string, payload []byte) {
	select {
	case b.queue <- message{topic: topic, payload: payload}:
	default:
		logging.Warn("Attribute queue full, dropping message", zap.String("topic", topic))
	}
}

// Drain applies every queued attribute document to the cache.
func (b *Bridge) Drain() {
	for {
		select {
		case msg := <-b.queue:
			b.HandleMessage(msg.topic, msg.payload)
		default:
			return
		}
	}
}

// HandleMessage applies one broker message to the cache. Messages on other
// topics are ignored.
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	logging.LogMessage(topic, payload)
	if !IsAttributeTopic(topic) {
		return
	}
	changed, err := b.cache.Apply(payload)
	if err != nil {
		logging.Warn("MQTT JSON parse error", zap.String("topic", topic), zap.Error(err))
		return
	}
	if changed {
		b.updated = true
	}
}

// HasUpdates reports whether the cache changed since the last ProcessCommands.
func (b *Bridge) HasUpdates() bool {
	return b.updated
}

// Attributes returns the cached shared attributes.
func (b *Bridge) Attributes() Attributes {
	return b.cache
}

// Status returns the last published status code.
func (b *Bridge) Status() int {
	return b.status
}

// ProcessCommands runs every command whose attribute changed since the last
// call, in a fixed order: Wi-Fi, motion and presses, set max, line
// coordinates, token entry.
func (b *Bridge) ProcessCommands(ctx context.Context) {
	if !b.updated {
		return
	}
	cur := b.cache
	b.updated = false

	b.processWiFi(ctx, cur)

	b.edge("up", cur.Up, &b.prev.Up, StatusUp, func() error {
		return b.move(b.actuator.MoveBy(-JogDistanceMM))
	})
	b.edge("down", cur.Down, &b.prev.Down, StatusDown, func() error {
		return b.move(b.actuator.MoveBy(JogDistanceMM))
	})
	b.edge("press1", cur.Press1, &b.prev.Press1, StatusPress1, func() error {
		return b.actuator.PressButton(1)
	})
	b.edge("press2", cur.Press2, &b.prev.Press2, StatusPress2, func() error {
		return b.actuator.PressButton(2)
	})
	b.edge("press3", cur.Press3, &b.prev.Press3, StatusPress3, func() error {
		return b.actuator.PressButton(3)
	})
	b.edge("setmax", cur.SetMax, &b.prev.SetMax, StatusSetMax, b.setMax)

	b.processRows(cur)
	b.processToken(ctx, cur)
}

// edge runs fn when value goes from zero to non-zero.
func (b *Bridge) edge(name string, value int, prev *int, status int, fn func() error) {
	if value != 0 && *prev == 0 {
		b.PublishStatus(status)
		logging.LogCommand(name, status)
		err := fn()
		b.observe(name, err)
		b.PublishStatus(StatusIdle)
	}
	*prev = value
}

func (b *Bridge) setMax() error {
	pos := b.actuator.PositionMM()
	b.settings.SetMaxPosition(pos)
	b.actuator.SetMaxPositionSetting(true)
	defer b.actuator.SetMaxPositionSetting(false)
	if err := b.actuator.SetMaximumPosition(pos); err != nil {
		return err
	}
	return b.settings.Save()
}

func (b *Bridge) processWiFi(ctx context.Context, cur Attributes) {
	ssid, _ := b.settings.WiFiCredentials()
	if cur.NewSSID == "" || cur.NewSSID == b.prev.NewSSID || cur.NewSSID == ssid {
		return
	}

	b.PublishStatus(StatusWiFi)
	logging.LogCommand("newssid", StatusWiFi, zap.String("ssid", cur.NewSSID))

	b.settings.SetWiFiCredentials(cur.NewSSID, cur.NewPass)
	err := b.settings.Save()
	if err != nil {
		logging.Error("Failed to save Wi-Fi credentials", zap.Error(err))
	}
	if b.wifi != nil {
		if cerr := b.wifi.Connect(ctx, cur.NewSSID, cur.NewPass); cerr != nil {
			logging.Warn("Wi-Fi connect with new credentials failed", zap.Error(cerr))
			err = cerr
		}
	}
	b.observe("newssid", err)

	b.PublishStatus(StatusIdle)
	b.prev.NewSSID = cur.NewSSID
	b.prev.NewPass = cur.NewPass
}

// processRows saves the current position for every row whose value changed,
// including a change back to zero.
func (b *Bridge) processRows(cur Attributes) {
	rows := []struct {
		value int
		prev  *int
	}{
		{cur.Row1, &b.prev.Row1},
		{cur.Row2, &b.prev.Row2},
		{cur.Row3, &b.prev.Row3},
		{cur.Row4, &b.prev.Row4},
	}

	needSave := false
	for i, row := range rows {
		line := i + 1
		if row.value != *row.prev {
			status := StatusRow1 + i
			b.PublishStatus(status)
			logging.LogCommand(fmt.Sprintf("row%d", line), status)
			b.settings.SetLineCoordinate(line, b.actuator.PositionMM())
			b.observe(fmt.Sprintf("row%d", line), nil)
			needSave = true
		}
		*row.prev = row.value
	}

	if needSave {
		if err := b.settings.Save(); err != nil {
			logging.Error("Failed to save line coordinates", zap.Error(err))
		} else {
			logging.Info("Line coordinates updated and saved")
		}
		b.PublishStatus(StatusIdle)
	}
}

// processToken enters a token: one key press per digit, then home.
func (b *Bridge) processToken(ctx context.Context, cur Attributes) {
	if cur.KodeToken == "" || cur.KodeToken == b.prev.KodeToken {
		return
	}

	b.PublishStatus(StatusToken)
	logging.LogCommand("kodetoken", StatusToken, zap.Int("length", len(cur.KodeToken)))

	var firstErr error
	for _, r := range cur.KodeToken {
		if r < '0' || r > '9' {
			continue
		}
		if ctx.Err() != nil {
			firstErr = ctx.Err()
			break
		}
		digit := int(r - '0')
		if err := b.actuator.PressSpecificButton(digit); err != nil {
			logging.Warn("Key press failed", zap.Int("button", digit), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		b.clock.Sleep(KeyPressGap)
	}

	if err := b.move(b.actuator.MoveTo(0)); err != nil {
		logging.Warn("Return to home failed", zap.Error(err))
	}
	b.observe("kodetoken", firstErr)

	b.PublishStatus(StatusIdle)
	b.prev.KodeToken = cur.KodeToken
}

func (b *Bridge) move(m motor.Move, err error) error {
	b.metrics.ObserveSteps(m.Completed)
	return err
}

func (b *Bridge) observe(command string, err error) {
	if err != nil {
		logging.Warn("Command refused", zap.String("command", command), zap.Error(err))
	}
	b.metrics.ObserveCommand(command, err)
}

// RequestShared asks the broker for the current shared attributes.
func (b *Bridge) RequestShared() error {
	if b.publisher == nil {
		return nil
	}
	return b.publisher.Publish(TopicRequest, RequestPayload())
}

// PublishStatus records status and publishes telemetry immediately.
func (b *Bridge) PublishStatus(status int) {
	b.status = status
	b.PublishTelemetry()
}

// PublishTelemetry publishes the current position and status.
func (b *Bridge) PublishTelemetry() {
	t := Telemetry{Position: b.actuator.PositionMM(), Status: b.status}
	payload := t.Payload()

	if b.publisher != nil {
		if err := b.publisher.Publish(TopicTelemetry, payload); err != nil {
			logging.Debug("Telemetry publish failed", zap.Error(err))
		} else {
			logging.LogTelemetry(TopicTelemetry, payload)
			b.metrics.ObserveTelemetry(t.Position, t.Status)
		}
	}
	if b.observer != nil {
		b.observer(t)
	}
}

// LogSubscription logs the attribute cache.
func (b *Bridge) LogSubscription() {
	a := b.cache
	logging.Info("[sub]",
		zap.Bool("updated", b.updated),
		zap.String("kodetoken", a.KodeToken),
		zap.Int("up", a.Up),
		zap.Int("down", a.Down),
		zap.Int("press1", a.Press1),
		zap.Int("press2", a.Press2),
		zap.Int("press3", a.Press3),
		zap.Int("stop", a.Stop),
		zap.Int("setmax", a.SetMax),
		zap.Int("row1", a.Row1),
		zap.Int("row2", a.Row2),
		zap.Int("row3", a.Row3),
		zap.Int("row4", a.Row4),
		zap.String("newssid", a.NewSSID),
		zap.Bool("newpass_set", a.NewPass != ""),
	)
}

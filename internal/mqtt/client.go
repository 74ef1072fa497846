// Package mqtt is the ThingsBoard transport for the device.
//
// The client logs in with the device access token as the MQTT username. On
// every successful connect it subscribes to the shared attribute push and
// response topics and runs the OnConnect hook, which normally requests the
// current shared attributes. Incoming messages are handed to a Sink without
// any processing; the paho callback goroutine never touches the actuator.
//
// Reconnection is driven by the caller (see internal/app) rather than by
// paho's auto-reconnect, so that retry cadence stays on the device loop.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/bridge"
	"github.com/aptl-dev/aptl/internal/logging"
	"github.com/aptl-dev/aptl/internal/metrics"
)

const (
	// DefaultClientID is used when neither a client ID nor a device ID is known.
	DefaultClientID = "aptl-device"

	KeepAlive      = 60 * time.Second
	ConnectTimeout = 5 * time.Second
)

// ErrNotConnected is returned by Publish while the broker link is down.
var ErrNotConnected = errors.New("mqtt: not connected")

// Sink receives raw broker messages.
type Sink interface {
	Enqueue(topic string, payload []byte)
}

// Config holds broker connection settings.
type Config struct {
	Host     string
	Port     int
	Token    string
	ClientID string
	DeviceID string

	Sink      Sink
	OnConnect func()
	Metrics   *metrics.Collector
}

// Client wraps a paho client for the ThingsBoard device API.
type Client struct {
	cfg    Config
	client paho.Client
}

// New creates a Client. It does not connect.
func New(cfg Config) *Client {
	c := &Client{cfg: cfg}
	c.client = paho.NewClient(c.options())
	return c
}

// BrokerURL formats the tcp:// URL for host and port.
func BrokerURL(host string, port int) string {
	return "tcp://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// ClientIDOrDefault resolves the MQTT client identifier: the configured value, then
// the device ID, then DefaultClientID.
func (cfg Config) ClientIDOrDefault() string {
	switch {
	case cfg.ClientID != "":
		return cfg.ClientID
	case cfg.DeviceID != "":
		return cfg.DeviceID
	default:
		return DefaultClientID
	}
}

func (c *Client) options() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(BrokerURL(c.cfg.Host, c.cfg.Port))
	opts.SetClientID(c.cfg.ClientIDOrDefault())
	opts.SetUsername(c.cfg.Token)
	opts.SetKeepAlive(KeepAlive)
	opts.SetConnectTimeout(ConnectTimeout)
	opts.SetWriteTimeout(ConnectTimeout)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	return opts
}

// Connect dials the broker and waits for the CONNACK, the connect timeout,
// or ctx, whichever comes first.
func (c *Client) Connect(ctx context.Context) error {
	broker := BrokerURL(c.cfg.Host, c.cfg.Port)
	logging.LogConnection("mqtt", "connecting",
		zap.String("broker", broker),
		zap.String("client_id", c.cfg.ClientIDOrDefault()),
	)

	token := c.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		c.cfg.Metrics.SetLink("mqtt", false)
		return fmt.Errorf("failed to connect to %s: %w", broker, err)
	}
	return nil
}

// IsConnected reports whether the broker link is up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Publish sends payload at QoS 0.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(ConnectTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Disconnect closes the broker link, allowing 250ms for in-flight work.
func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	c.cfg.Metrics.SetLink("mqtt", false)
	logging.LogConnection("mqtt", "disconnected")
}

func (c *Client) onConnect(client paho.Client) {
	logging.LogConnection("mqtt", "connected")
	c.cfg.Metrics.SetLink("mqtt", true)

	for _, topic := range []string{bridge.TopicResponse, bridge.TopicAttributes} {
		token := client.Subscribe(topic, 0, c.handle)
		if token.WaitTimeout(ConnectTimeout) && token.Error() != nil {
			logging.Error("Subscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
		}
	}

	if c.cfg.OnConnect != nil {
		c.cfg.OnConnect()
	}
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	logging.LogConnection("mqtt", "lost", zap.Error(err))
	c.cfg.Metrics.SetLink("mqtt", false)
}

func (c *Client) handle(_ paho.Client, msg paho.Message) {
	if c.cfg.Sink == nil {
		return
	}
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())
	c.cfg.Sink.Enqueue(msg.Topic(), payload)
}

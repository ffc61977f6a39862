// Package mqtt carries coop telemetry in and device commands out over a
// single paho connection.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kandang-monitor/internal/config"
	"kandang-monitor/internal/types"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("mqtt client stopped")
)

// TelemetryHandler is called for each valid telemetry message.
type TelemetryHandler func(t types.Telemetry) error

// Subscriber attaches a telemetry handler. Implemented by *Client.
type Subscriber interface {
	SetMessageHandler(handler TelemetryHandler)
}

type Client struct {
	client    paho.Client
	cfg       config.Config
	logger    *slog.Logger
	now       func() time.Time
	mu        sync.RWMutex
	connected bool
	handler   TelemetryHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

func (c *Client) SetMessageHandler(handler TelemetryHandler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	c := &Client{
		cfg:    cfg,
		logger: logger.With("component", "mqtt"),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Handlers publish device commands and wait for the PUBACK; with in-order
	// routing that ack is stuck behind the next inbound message.
	opts.SetOrderMatters(false)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Resubscribe on every (re)connect; the session is clean.
	opts.SetOnConnectHandler(func(_ paho.Client) {
		c.setConnected(true)
		c.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := c.subscribe(); err != nil {
			c.logger.Error("mqtt subscribe failed", "topic", cfg.MQTTTopic, "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = paho.NewClient(opts)
	return c
}

// Connect blocks until the broker accepts the connection, ctx is done or the
// client is stopped.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()
	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return ctx.Err()
		case <-c.stopCh:
			c.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (c *Client) subscribe() error {
	topic := c.cfg.MQTTTopic
	const qos = byte(1)

	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		c.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	c.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (c *Client) handleMessage(topic string, payload []byte) {
	c.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	t, err := c.decodeTelemetry(payload)
	if err != nil {
		c.logger.Warn("dropping telemetry message", "topic", topic, "error", err, "payload", string(payload))
		return
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		return
	}
	if err := handler(t); err != nil {
		c.logger.Error("telemetry handler failed", "topic", topic, "source", t.Source, "error", err)
		return
	}
	c.logger.Debug("processed telemetry message", "source", t.Source, "timestamp", t.Timestamp)
}

// decodeTelemetry parses and validates one payload. A missing timestamp is
// stamped with the receive time.
func (c *Client) decodeTelemetry(payload []byte) (types.Telemetry, error) {
	var t types.Telemetry
	if err := json.Unmarshal(payload, &t); err != nil {
		return types.Telemetry{}, fmt.Errorf("parse telemetry: %w", err)
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = c.now()
	}
	if err := validateTelemetry(t); err != nil {
		return types.Telemetry{}, err
	}
	return t, nil
}

func validateTelemetry(t types.Telemetry) error {
	if t.Temperature == nil && t.Humidity == nil && t.Pressure == nil && t.Altitude == nil && t.LDR == nil {
		return errors.New("at least one sensor reading is required")
	}
	if t.Humidity != nil && (*t.Humidity < 0 || *t.Humidity > 100) {
		return fmt.Errorf("humidity_pct out of range: %f (must be 0-100)", *t.Humidity)
	}
	if t.Pressure != nil && *t.Pressure <= 0 {
		return fmt.Errorf("pressure_hpa must be positive: %f", *t.Pressure)
	}
	if t.LDR != nil && *t.LDR < 0 {
		return fmt.Errorf("ldr must not be negative: %f", *t.LDR)
	}
	return nil
}

// CommandTopic is where the controller listens for a device's on/off command.
func CommandTopic(prefix, device string) string {
	return prefix + "/devices/" + device + "/set"
}

// PublishDeviceState sends a retained on/off command for device.
func (c *Client) PublishDeviceState(ctx context.Context, device, status string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	topic := CommandTopic(c.cfg.MQTTCommandPrefix, device)
	token := c.client.Publish(topic, 1, true, status)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	c.logger.Debug("device command published", "topic", topic, "status", status)
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the connection.
// Idempotent and safe to call multiple times.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil && c.IsConnected() {
		c.client.Unsubscribe(c.cfg.MQTTTopic).WaitTimeout(2 * time.Second)
	}
	if c.client != nil {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
	c.logger.Info("mqtt client disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"outpost/internal/config"
	"outpost/internal/logging"
	"outpost/internal/producer"
	"outpost/internal/store"
)

// Wire event types published by the sensor services.
const (
	TypeMotionDetected   = "MOTION_DETECTED"
	TypeButtonPressed    = "BUTTON_PRESSED"
	TypePressureDetected = "PRESSURE_DETECTED"
)

type wireEvent struct {
	Type      string `json:"type"`
	EventID   string `json:"event_id"`
	DeviceID  string `json:"device_id"`
	State     *int   `json:"state"`
	Timestamp string `json:"timestamp"`
}

// Intake is the producer-side surface the listener feeds.
type Intake interface {
	Enqueue(producer.Notification) bool
}

// Listener subscribes to the sensor topics and forwards notifications.
type Listener struct {
	cfg    *config.Config
	intake Intake
	logger *slog.Logger
	client mqtt.Client
}

// NewListener builds a listener; Start connects and subscribes.
func NewListener(cfg *config.Config, intake Intake, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Listener{
		cfg:    cfg,
		intake: intake,
		logger: logging.WithComponent(logger, "bus"),
	}
}

// Start connects to the broker with bounded retries and subscribes to the
// motion, button and pressure topics.
func (l *Listener) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(l.cfg.MQTT.Broker).
		SetClientID(l.cfg.MQTT.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(false)

	client := mqtt.NewClient(opts)

	attempts := l.cfg.MQTT.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := time.Duration(l.cfg.MQTT.ConnectDelaySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		token := client.Connect()
		token.Wait()
		lastErr = token.Error()
		if lastErr == nil {
			break
		}
		l.logger.Warn("broker connection failed",
			logging.String("broker", l.cfg.MQTT.Broker),
			logging.Int("attempt", attempt),
			logging.Error(lastErr))
		if attempt == attempts {
			return fmt.Errorf("connect to broker %s: %w", l.cfg.MQTT.Broker, lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	qos := byte(l.cfg.MQTT.QoS)
	topics := map[string]byte{
		l.cfg.MQTT.MotionTopic:   qos,
		l.cfg.MQTT.ButtonTopic:   qos,
		l.cfg.MQTT.PressureTopic: qos,
	}
	token := client.SubscribeMultiple(topics, l.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		client.Disconnect(250)
		return fmt.Errorf("subscribe sensor topics: %w", err)
	}

	l.client = client
	l.logger.Info("listening for sensor events",
		logging.String("broker", l.cfg.MQTT.Broker),
		logging.Int("topics", len(topics)))
	return nil
}

// Stop disconnects from the broker.
func (l *Listener) Stop() {
	if l.client != nil {
		l.client.Disconnect(250)
		l.client = nil
	}
}

func (l *Listener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	notification, err := MapMessage(msg.Topic(), msg.Payload())
	if err != nil {
		l.logger.Warn("sensor message dropped",
			logging.String("topic", msg.Topic()),
			logging.Error(err))
		return
	}
	l.intake.Enqueue(notification)
}

// MapMessage converts one wire message into a producer notification. Errors
// mean the message should be dropped.
func MapMessage(topic string, payload []byte) (producer.Notification, error) {
	var wire wireEvent
	if err := json.Unmarshal(payload, &wire); err != nil {
		return producer.Notification{}, fmt.Errorf("malformed payload: %w", err)
	}

	var kind string
	switch wire.Type {
	case TypeMotionDetected:
		kind = store.SensorMotion
	case TypeButtonPressed:
		// The stop button and the pressure mat publish the same type on
		// different topics.
		if strings.Contains(topic, "button") {
			kind = store.SensorButton
		} else {
			kind = store.SensorPressure
		}
	case TypePressureDetected:
		kind = store.SensorPressure
	default:
		return producer.Notification{}, fmt.Errorf("unrecognized event type %q", wire.Type)
	}

	state := 1
	if wire.State != nil {
		state = *wire.State
	}
	var occurred time.Time
	if wire.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, wire.Timestamp); err == nil {
			occurred = t.UTC()
		}
	}

	return producer.Notification{
		ExternalID: wire.EventID,
		Kind:       kind,
		State:      state,
		DeviceID:   wire.DeviceID,
		OccurredAt: occurred,
		Payload:    json.RawMessage(payload),
	}, nil
}

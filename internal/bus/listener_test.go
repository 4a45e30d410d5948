package bus_test

import (
	"testing"
	"time"

	"outpost/internal/bus"
	"outpost/internal/store"
)

func TestMapMessageMotion(t *testing.T) {
	payload := []byte(`{"type":"MOTION_DETECTED","event_id":"evt-1","device_id":"raspberry-1","state":1,"timestamp":"2026-08-28T10:00:00Z"}`)
	notification, err := bus.MapMessage("sensor/motion", payload)
	if err != nil {
		t.Fatalf("MapMessage returned error: %v", err)
	}
	if notification.Kind != store.SensorMotion {
		t.Fatalf("unexpected kind: %q", notification.Kind)
	}
	if notification.ExternalID != "evt-1" || notification.DeviceID != "raspberry-1" {
		t.Fatalf("identity fields wrong: %#v", notification)
	}
	want := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	if !notification.OccurredAt.Equal(want) {
		t.Fatalf("timestamp not parsed: %s", notification.OccurredAt)
	}
	if string(notification.Payload) != string(payload) {
		t.Fatal("raw payload not preserved")
	}
}

func TestMapMessageButtonByTopic(t *testing.T) {
	payload := []byte(`{"type":"BUTTON_PRESSED","event_id":"evt-2"}`)

	notification, err := bus.MapMessage("sensor/button", payload)
	if err != nil {
		t.Fatalf("MapMessage returned error: %v", err)
	}
	if notification.Kind != store.SensorButton {
		t.Fatalf("button topic should map to button kind, got %q", notification.Kind)
	}

	notification, err = bus.MapMessage("sensor/pressure", payload)
	if err != nil {
		t.Fatalf("MapMessage returned error: %v", err)
	}
	if notification.Kind != store.SensorPressure {
		t.Fatalf("pressure topic should map to pressure kind, got %q", notification.Kind)
	}
}

func TestMapMessagePressure(t *testing.T) {
	payload := []byte(`{"type":"PRESSURE_DETECTED","event_id":"evt-3","state":0}`)
	notification, err := bus.MapMessage("sensor/pressure", payload)
	if err != nil {
		t.Fatalf("MapMessage returned error: %v", err)
	}
	if notification.Kind != store.SensorPressure {
		t.Fatalf("unexpected kind: %q", notification.Kind)
	}
	if notification.State != 0 {
		t.Fatalf("explicit zero state not honored: %d", notification.State)
	}
}

func TestMapMessageDefaultsState(t *testing.T) {
	notification, err := bus.MapMessage("sensor/motion", []byte(`{"type":"MOTION_DETECTED"}`))
	if err != nil {
		t.Fatalf("MapMessage returned error: %v", err)
	}
	if notification.State != 1 {
		t.Fatalf("missing state should default to 1, got %d", notification.State)
	}
}

func TestMapMessageRejectsMalformed(t *testing.T) {
	if _, err := bus.MapMessage("sensor/motion", []byte("not-json")); err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
	if _, err := bus.MapMessage("sensor/motion", []byte(`{"type":"DOOR_OPENED"}`)); err == nil {
		t.Fatal("expected error for unrecognized event type")
	}
}

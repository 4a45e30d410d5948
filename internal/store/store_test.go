package store_test

import (
	"context"
	"testing"
	"time"

	"outpost/internal/store"
	"outpost/internal/testsupport"
)

func TestOpenSeedsDefaultSensors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	sensors, err := st.Sensors(ctx)
	if err != nil {
		t.Fatalf("Sensors failed: %v", err)
	}
	if len(sensors) != 4 {
		t.Fatalf("expected 4 seeded sensors, got %d", len(sensors))
	}

	kinds := map[string]bool{}
	for _, sensor := range sensors {
		kinds[sensor.Kind] = true
		if sensor.DeviceID != "test-device" {
			t.Fatalf("sensor %q carries wrong device id %q", sensor.Name, sensor.DeviceID)
		}
	}
	for _, kind := range []string{store.SensorMotion, store.SensorButton, store.SensorPressure, store.SensorCamera} {
		if !kinds[kind] {
			t.Fatalf("missing seeded sensor kind %q", kind)
		}
	}
}

func TestSensorByKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	sensor, err := st.SensorByKind(ctx, store.SensorMotion)
	if err != nil {
		t.Fatalf("SensorByKind failed: %v", err)
	}
	if sensor == nil || sensor.Kind != store.SensorMotion {
		t.Fatalf("unexpected sensor: %#v", sensor)
	}

	missing, err := st.SensorByKind(ctx, "thermometer")
	if err != nil {
		t.Fatalf("SensorByKind failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown kind, got %#v", missing)
	}
}

func TestInsertEventAssignsID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	sensor, err := st.SensorByKind(ctx, store.SensorMotion)
	if err != nil {
		t.Fatalf("SensorByKind failed: %v", err)
	}

	event := &store.Event{
		ExternalID: "evt-1",
		State:      1,
		SensorID:   sensor.ID,
	}
	if err := st.InsertEvent(ctx, event); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if event.ID == 0 {
		t.Fatal("expected event ID to be assigned")
	}
	if event.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at default")
	}

	fetched, err := st.EventByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("EventByID failed: %v", err)
	}
	if fetched == nil || fetched.ExternalID != "evt-1" || fetched.SensorID != sensor.ID {
		t.Fatalf("unexpected fetched event: %#v", fetched)
	}
}

func TestInsertMediaLinksEvent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	motion, _ := st.SensorByKind(ctx, store.SensorMotion)
	camera, _ := st.SensorByKind(ctx, store.SensorCamera)

	event := &store.Event{ExternalID: "evt-2", State: 1, SensorID: motion.ID}
	if err := st.InsertEvent(ctx, event); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	media := &store.Media{
		EventID:         &event.ID,
		SensorID:        camera.ID,
		Data:            []byte("h264-bytes"),
		DurationSeconds: 10,
		CameraIndex:     1,
		Resolution:      "1280x720",
		Codec:           "h264",
	}
	if err := st.InsertMedia(ctx, media); err != nil {
		t.Fatalf("InsertMedia failed: %v", err)
	}
	if media.ID == 0 {
		t.Fatal("expected media ID to be assigned")
	}
	if media.SizeBytes != int64(len("h264-bytes")) {
		t.Fatalf("size not derived from data: %d", media.SizeBytes)
	}

	fetched, err := st.MediaByID(ctx, media.ID)
	if err != nil {
		t.Fatalf("MediaByID failed: %v", err)
	}
	if fetched == nil || fetched.EventID == nil || *fetched.EventID != event.ID {
		t.Fatalf("unexpected fetched media: %#v", fetched)
	}
	if string(fetched.Data) != "h264-bytes" {
		t.Fatalf("media payload mismatch: %q", fetched.Data)
	}
}

func TestInsertMediaRejectsEmptyPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	camera, _ := st.SensorByKind(ctx, store.SensorCamera)
	media := &store.Media{SensorID: camera.ID, CameraIndex: 1}
	if err := st.InsertMedia(ctx, media); err == nil {
		t.Fatal("expected error for empty media payload")
	}
}

func TestReopenPreservesData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ctx := context.Background()
	sensor, _ := st.SensorByKind(ctx, store.SensorButton)
	event := &store.Event{State: 1, SensorID: sensor.ID, OccurredAt: time.Now().UTC()}
	if err := st.InsertEvent(ctx, event); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	fetched, err := reopened.EventByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("EventByID after reopen failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("event lost across reopen")
	}

	// Reopen must not duplicate the seeded sensors.
	sensors, err := reopened.Sensors(ctx)
	if err != nil {
		t.Fatalf("Sensors failed: %v", err)
	}
	if len(sensors) != 4 {
		t.Fatalf("sensor seeding not idempotent: %d sensors", len(sensors))
	}
}

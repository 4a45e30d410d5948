package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertEvent appends an event row and fills in its assigned ID and creation
// time. Event rows are never updated afterwards.
func (s *Store) InsertEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("event is nil")
	}
	now := time.Now().UTC()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now
	}
	event.CreatedAt = now

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO events (external_id, occurred_at, state, sensor_id, metadata_json, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		nullableString(event.ExternalID),
		formatTime(event.OccurredAt),
		event.State,
		event.SensorID,
		nullableString(event.MetadataJSON),
		formatTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	event.ID = id
	return nil
}

// EventByID fetches an event by identifier, or nil when absent.
func (s *Store) EventByID(ctx context.Context, id int64) (*Event, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, external_id, occurred_at, state, sensor_id, metadata_json, created_at
         FROM events WHERE id = ?`,
		id,
	)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// InsertMedia appends a media row and fills in its assigned ID.
func (s *Store) InsertMedia(ctx context.Context, media *Media) error {
	if media == nil {
		return errors.New("media is nil")
	}
	if len(media.Data) == 0 {
		return errors.New("media data is empty")
	}
	if media.CapturedAt.IsZero() {
		media.CapturedAt = time.Now().UTC()
	}
	media.SizeBytes = int64(len(media.Data))

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO media (event_id, sensor_id, data, size_bytes, duration_seconds,
            captured_at, camera_index, resolution, codec)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableInt64(media.EventID),
		media.SensorID,
		media.Data,
		media.SizeBytes,
		media.DurationSeconds,
		formatTime(media.CapturedAt),
		media.CameraIndex,
		nullableString(media.Resolution),
		nullableString(media.Codec),
	)
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	media.ID = id
	return nil
}

// MediaByID fetches a media row by identifier, or nil when absent.
func (s *Store) MediaByID(ctx context.Context, id int64) (*Media, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, event_id, sensor_id, data, size_bytes, duration_seconds,
            captured_at, camera_index, resolution, codec
         FROM media WHERE id = ?`,
		id,
	)
	media, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return media, nil
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*Event, error) {
	var (
		id          int64
		externalID  sql.NullString
		occurredRaw sql.NullString
		state       int
		sensorID    int64
		metadata    sql.NullString
		createdRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &externalID, &occurredRaw, &state, &sensorID, &metadata, &createdRaw); err != nil {
		return nil, err
	}
	event := &Event{
		ID:           id,
		ExternalID:   externalID.String,
		State:        state,
		SensorID:     sensorID,
		MetadataJSON: metadata.String,
	}
	if occurred, err := parseTimeString(occurredRaw.String); err == nil {
		event.OccurredAt = occurred
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		event.CreatedAt = created
	}
	return event, nil
}

func scanMedia(scanner interface{ Scan(dest ...any) error }) (*Media, error) {
	var (
		id          int64
		eventID     sql.NullInt64
		sensorID    int64
		data        []byte
		sizeBytes   int64
		duration    sql.NullInt64
		capturedRaw sql.NullString
		cameraIndex int
		resolution  sql.NullString
		codec       sql.NullString
	)
	if err := scanner.Scan(&id, &eventID, &sensorID, &data, &sizeBytes, &duration, &capturedRaw, &cameraIndex, &resolution, &codec); err != nil {
		return nil, err
	}
	media := &Media{
		ID:          id,
		SensorID:    sensorID,
		Data:        data,
		SizeBytes:   sizeBytes,
		CameraIndex: cameraIndex,
		Resolution:  resolution.String,
		Codec:       codec.String,
	}
	if eventID.Valid {
		v := eventID.Int64
		media.EventID = &v
	}
	if duration.Valid {
		media.DurationSeconds = int(duration.Int64)
	}
	if captured, err := parseTimeString(capturedRaw.String); err == nil {
		media.CapturedAt = captured
	}
	return media, nil
}

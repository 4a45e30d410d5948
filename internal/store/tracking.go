package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UnsyncedEvents returns every event that has never been acknowledged by the
// backend, oldest first. The query is an anti-join against success ledger
// entries, so accumulated failed attempts never hide a record.
func (s *Store) UnsyncedEvents(ctx context.Context) ([]*EventRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT e.id, e.external_id, e.occurred_at, e.state, e.sensor_id,
            e.metadata_json, e.created_at, sn.name, sn.kind
         FROM events e
         JOIN sensors sn ON sn.id = e.sensor_id
         WHERE e.id NOT IN (
            SELECT local_id FROM sync_tracking
            WHERE table_name = ? AND status = ?
         )
         ORDER BY e.occurred_at ASC, e.id ASC`,
		TableEvents,
		StatusSuccess,
	)
	if err != nil {
		return nil, fmt.Errorf("query unsynced events: %w", err)
	}
	defer rows.Close()

	var records []*EventRecord
	for rows.Next() {
		var (
			rec        EventRecord
			externalID sql.NullString
			occurred   sql.NullString
			metadata   sql.NullString
			created    sql.NullString
		)
		if err := rows.Scan(
			&rec.Event.ID,
			&externalID,
			&occurred,
			&rec.Event.State,
			&rec.Event.SensorID,
			&metadata,
			&created,
			&rec.SensorName,
			&rec.SensorKind,
		); err != nil {
			return nil, fmt.Errorf("scan unsynced event: %w", err)
		}
		rec.Event.ExternalID = externalID.String
		rec.Event.MetadataJSON = metadata.String
		if t, err := parseTimeString(occurred.String); err == nil {
			rec.Event.OccurredAt = t
		}
		if t, err := parseTimeString(created.String); err == nil {
			rec.Event.CreatedAt = t
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// UnsyncedMedia returns every media row that has never been acknowledged by
// the backend, oldest first, joined with its sensor and originating event.
func (s *Store) UnsyncedMedia(ctx context.Context) ([]*MediaRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT m.id, m.event_id, m.sensor_id, m.data, m.size_bytes, m.duration_seconds,
            m.captured_at, m.camera_index, m.resolution, m.codec,
            sn.name, COALESCE(e.external_id, '')
         FROM media m
         JOIN sensors sn ON sn.id = m.sensor_id
         LEFT JOIN events e ON e.id = m.event_id
         WHERE m.id NOT IN (
            SELECT local_id FROM sync_tracking
            WHERE table_name = ? AND status = ?
         )
         ORDER BY m.captured_at ASC, m.id ASC`,
		TableMedia,
		StatusSuccess,
	)
	if err != nil {
		return nil, fmt.Errorf("query unsynced media: %w", err)
	}
	defer rows.Close()

	var records []*MediaRecord
	for rows.Next() {
		var (
			rec        MediaRecord
			eventID    sql.NullInt64
			duration   sql.NullInt64
			captured   sql.NullString
			resolution sql.NullString
			codec      sql.NullString
		)
		if err := rows.Scan(
			&rec.Media.ID,
			&eventID,
			&rec.Media.SensorID,
			&rec.Media.Data,
			&rec.Media.SizeBytes,
			&duration,
			&captured,
			&rec.Media.CameraIndex,
			&resolution,
			&codec,
			&rec.SensorName,
			&rec.EventExternalID,
		); err != nil {
			return nil, fmt.Errorf("scan unsynced media: %w", err)
		}
		if eventID.Valid {
			v := eventID.Int64
			rec.Media.EventID = &v
		}
		if duration.Valid {
			rec.Media.DurationSeconds = int(duration.Int64)
		}
		rec.Media.Resolution = resolution.String
		rec.Media.Codec = codec.String
		if t, err := parseTimeString(captured.String); err == nil {
			rec.Media.CapturedAt = t
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// RecordOutcome upserts the ledger row for (tableName, localID). The identity
// key never changes; a later call for the same key replaces the mutable
// fields. Success rows are kept out of rewrites by the anti-join above, not by
// this method.
func (s *Store) RecordOutcome(ctx context.Context, tableName string, localID int64, remoteID *int64, status SyncStatus, errorDetail string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_tracking (table_name, local_id, remote_id, last_attempt_at, status, error_detail)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (table_name, local_id) DO UPDATE SET
            remote_id = excluded.remote_id,
            last_attempt_at = excluded.last_attempt_at,
            status = excluded.status,
            error_detail = excluded.error_detail`,
		tableName,
		localID,
		nullableInt64(remoteID),
		formatTime(time.Now()),
		status,
		nullableString(errorDetail),
	)
	if err != nil {
		return fmt.Errorf("record sync outcome: %w", err)
	}
	return nil
}

// OutcomeFor returns the ledger entry for a record, or nil when the record has
// never been attempted.
func (s *Store) OutcomeFor(ctx context.Context, tableName string, localID int64) (*SyncEntry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, table_name, local_id, remote_id, last_attempt_at, status, error_detail
         FROM sync_tracking WHERE table_name = ? AND local_id = ?`,
		tableName,
		localID,
	)

	var (
		entry      SyncEntry
		remoteID   sql.NullInt64
		attemptRaw sql.NullString
		statusStr  string
		detail     sql.NullString
	)
	err := row.Scan(&entry.ID, &entry.TableName, &entry.LocalID, &remoteID, &attemptRaw, &statusStr, &detail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync outcome: %w", err)
	}
	if remoteID.Valid {
		v := remoteID.Int64
		entry.RemoteID = &v
	}
	entry.Status = SyncStatus(statusStr)
	entry.ErrorDetail = detail.String
	if t, err := parseTimeString(attemptRaw.String); err == nil {
		entry.LastAttemptAt = t
	}
	return &entry, nil
}

// ResetFailed bulk-transitions every failed ledger entry back to pending so
// the next sweep picks the records up again. Success entries are untouched.
func (s *Store) ResetFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sync_tracking SET status = ? WHERE status = ?`,
		StatusPending,
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("reset failed entries: %w", err)
	}
	return res.RowsAffected()
}

// ResetTracking deletes the entire ledger. The next sweep resynchronizes
// everything; the backend will assign fresh remote IDs. CLI-only, destructive.
func (s *Store) ResetTracking(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sync_tracking`)
	if err != nil {
		return 0, fmt.Errorf("reset sync tracking: %w", err)
	}
	return res.RowsAffected()
}

// SyncStats returns the ledger breakdown by table and status.
func (s *Store) SyncStats(ctx context.Context) ([]SyncStat, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT table_name, status, COUNT(1)
         FROM sync_tracking GROUP BY table_name, status ORDER BY table_name, status`,
	)
	if err != nil {
		return nil, fmt.Errorf("sync stats: %w", err)
	}
	defer rows.Close()

	var stats []SyncStat
	for rows.Next() {
		var stat SyncStat
		var statusStr string
		if err := rows.Scan(&stat.TableName, &statusStr, &stat.Count); err != nil {
			return nil, err
		}
		stat.Status = SyncStatus(statusStr)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// UnsyncedCounts reports how many events and media rows still await a
// successful upload.
func (s *Store) UnsyncedCounts(ctx context.Context) (events int64, media int64, err error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT
            (SELECT COUNT(1) FROM events WHERE id NOT IN
                (SELECT local_id FROM sync_tracking WHERE table_name = ? AND status = ?)),
            (SELECT COUNT(1) FROM media WHERE id NOT IN
                (SELECT local_id FROM sync_tracking WHERE table_name = ? AND status = ?))`,
		TableEvents, StatusSuccess,
		TableMedia, StatusSuccess,
	)
	if err := row.Scan(&events, &media); err != nil {
		return 0, 0, fmt.Errorf("count unsynced records: %w", err)
	}
	return events, media, nil
}
